package domain

// Change events fanned out to every connected client after a mutation is
// applied to the in-memory store. Delivery is best effort, at most once per
// channel; clients that miss events catch up with an explicit query.

// EventType identifies a change event on the wire.
type EventType string

const (
	EventRecipeUpserted      EventType = "recipe-upserted"
	EventRecipeDeleted       EventType = "recipe-deleted"
	EventImportCompleted     EventType = "import-completed"
	EventAccountUpserted     EventType = "account-upserted"
	EventReportCreated       EventType = "report-created"
	EventReportUpdated       EventType = "report-updated"
	EventNotificationCreated EventType = "notification-created"
	EventAnnouncement        EventType = "announcement"
)

// Event is the envelope written to each client channel.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// DeletedPayload carries the identity of a removed record.
type DeletedPayload struct {
	ID string `json:"id"`
}

// ImportPayload summarizes a completed bulk import.
type ImportPayload struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// AnnouncementPayload is the broadcast-to-all informational message.
type AnnouncementPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
