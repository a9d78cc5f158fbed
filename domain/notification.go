package domain

import "time"

// NotificationKind classifies a notification for client-side rendering.
type NotificationKind string

const (
	NotifyReaction   NotificationKind = "reaction"
	NotifyModeration NotificationKind = "moderation"
	NotifyReport     NotificationKind = "report"
	NotifySystem     NotificationKind = "system"
)

// Notification is addressed to an account by display name. Created by system
// actions reacting to other mutations, never directly by a client.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	Recipient string           `json:"recipient" bson:"recipient"`
	Kind      NotificationKind `json:"kind" bson:"kind"`
	Title     string           `json:"title" bson:"title"`
	Body      string           `json:"body" bson:"body"`
	Read      bool             `json:"read" bson:"read"`
	Link      string           `json:"link,omitempty" bson:"link,omitempty"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}
