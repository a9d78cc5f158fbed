package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/domain"
	"recipehub/interfaces/http/rest/middleware"
	"recipehub/pkg/common"
)

// AccountHandler serves the account directory and account mutations.
type AccountHandler struct {
	store  *store.Store
	writer *writer.Coordinator
	logger *zap.Logger
}

// NewAccountHandler creates the handler.
func NewAccountHandler(st *store.Store, wr *writer.Coordinator, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{store: st, writer: wr, logger: logger}
}

// Directory handles GET /accounts. Credential material never leaves the
// store; only the sanitized projection is returned.
func (h *AccountHandler) Directory(w http.ResponseWriter, r *http.Request) {
	accounts := h.store.Accounts()
	out := make([]domain.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.PublicView())
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// Upsert handles POST /accounts.
func (h *AccountHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in writer.AccountInput
	if err := common.ParseJSONBody(r, &in, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	// Only staff may change roles or ban flags on other accounts.
	if !caller.Role.IsStaff() && (in.Role != "" || in.Banned) {
		common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "staff role required to change role or ban state")
		return
	}

	acct, err := h.writer.UpsertAccount(in)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, acct.PublicView())
}

// ToggleFavorite handles POST /accounts/favorites/{recipeID} for the caller.
func (h *AccountHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	added, err := h.writer.ToggleFavorite(caller.Email, chi.URLParam(r, "recipeID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"favorite": added})
}
