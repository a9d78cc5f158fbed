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

// ReportHandler serves the moderation report queue.
type ReportHandler struct {
	store  *store.Store
	writer *writer.Coordinator
	logger *zap.Logger
}

// NewReportHandler creates the handler.
func NewReportHandler(st *store.Store, wr *writer.Coordinator, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{store: st, writer: wr, logger: logger}
}

// List handles GET /reports. Staff only; enforced by the router.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.Reports())
}

// Create handles POST /reports. Any authenticated account can flag a recipe.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var body struct {
		RecipeID string `json:"recipeId"`
		Reason   string `json:"reason"`
		Details  string `json:"details,omitempty"`
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	rep, err := h.writer.CreateReport(body.RecipeID, caller.Name, body.Reason, body.Details)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, rep)
}

// Resolve handles POST /reports/{id}/resolve. Staff only; open→resolved is
// the only permitted transition.
func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	rep, err := h.writer.ResolveReport(chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, rep)
}
