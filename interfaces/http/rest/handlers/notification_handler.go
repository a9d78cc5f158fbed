package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/interfaces/http/rest/middleware"
	"recipehub/pkg/common"
)

// NotificationHandler serves per-account notifications and the staff
// announcement broadcast.
type NotificationHandler struct {
	store  *store.Store
	writer *writer.Coordinator
	logger *zap.Logger
}

// NewNotificationHandler creates the handler.
func NewNotificationHandler(st *store.Store, wr *writer.Coordinator, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: st, writer: wr, logger: logger}
}

// List handles GET /notifications?recipient=; without the parameter the
// caller's own display name is used.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		recipient = caller.Name
	}
	common.RespondJSON(w, http.StatusOK, h.store.NotificationsFor(recipient))
}

// MarkRead handles POST /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.writer.MarkNotificationRead(chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, n)
}

// Announce handles POST /announce: a broadcast-to-all informational event.
// Staff only; nothing is stored.
func (h *NotificationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if err := h.writer.Announce(body.Title, body.Body); err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
