package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recipehub/application/query"
	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/domain"
	"recipehub/interfaces/http/rest/middleware"
	"recipehub/pkg/common"
	apperrors "recipehub/pkg/errors"
)

const maxBodyBytes = 1 << 20

// RecipeHandler serves the recipe query and mutation surface.
type RecipeHandler struct {
	store           *store.Store
	writer          *writer.Coordinator
	logger          *zap.Logger
	maxDuration     int
	defaultPageSize int
}

// NewRecipeHandler creates the handler.
func NewRecipeHandler(st *store.Store, wr *writer.Coordinator, logger *zap.Logger, maxDuration, defaultPageSize int) *RecipeHandler {
	return &RecipeHandler{
		store:           st,
		writer:          wr,
		logger:          logger,
		maxDuration:     maxDuration,
		defaultPageSize: defaultPageSize,
	}
}

// List handles GET /recipes. The criteria come from query parameters; an
// explicit ids list short-circuits every other filter.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	c := h.parseCriteria(r)
	res := query.Run(h.store.Recipes(), c)
	common.RespondPage(w, http.StatusOK, res.Data, res.Page, res.Total, res.Pages)
}

// parseCriteria translates the wire parameters into engine criteria. The
// legacy convention that a maximum-duration filter at the configured cap
// means "no upper bound" is resolved here, so the engine sees an explicit
// unbounded value instead of a sentinel.
func (h *RecipeHandler) parseCriteria(r *http.Request) query.Criteria {
	q := r.URL.Query()

	c := query.Criteria{
		Text:       q.Get("q"),
		Sort:       query.SortKey(q.Get("sort")),
		Page:       intParam(q.Get("page"), 1),
		PageSize:   intParam(q.Get("pageSize"), h.defaultPageSize),
		MinMinutes: intParam(q.Get("minMinutes"), 0),
		MaxMinutes: query.NoDurationCap,
	}
	if c.Sort == "" {
		c.Sort = query.SortNewest
	}

	if raw := q.Get("maxMinutes"); raw != "" {
		if max := intParam(raw, 0); max > 0 && max < h.maxDuration {
			c.MaxMinutes = max
		}
	}
	if raw := q.Get("tags"); raw != "" {
		c.Tags = splitList(raw)
	}
	if raw := q.Get("complexity"); raw != "" {
		c.Complexities = splitList(raw)
	}
	if raw := q.Get("ids"); raw != "" {
		c.IDs = splitList(raw)
	}
	return c
}

// Upsert handles POST /recipes with a full record.
func (h *RecipeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in writer.RecipeInput
	if err := common.ParseJSONBody(r, &in, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	recipe, err := h.writer.UpsertRecipe(in)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, recipe)
}

// Delete handles DELETE /recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.writer.DeleteRecipe(id); err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Import handles POST /recipes/import with an array of raw records lacking
// IDs. IDs are generated server side.
func (h *RecipeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var raw []writer.RecipeInput
	if err := common.ParseJSONBody(r, &raw, 16*maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	count, msg, err := h.writer.ImportRecipes(raw)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"count": count, "message": msg})
}

// Tags handles GET /recipes/tags: the deduplicated sorted union of all tags,
// recomputed from the live collection per call.
func (h *RecipeHandler) Tags(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.TagDirectory())
}

// Rate handles POST /recipes/{id}/rating.
func (h *RecipeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var body struct {
		Score float64 `json:"score"`
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	recipe, err := h.writer.RateRecipe(caller.Email, chi.URLParam(r, "id"), body.Score)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, recipe)
}

// Comment handles POST /recipes/{id}/comments. A parentId turns the comment
// into a depth-1 reply.
func (h *RecipeHandler) Comment(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var body struct {
		Text     string `json:"text"`
		ParentID string `json:"parentId,omitempty"`
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	recipe, err := h.writer.AddComment(chi.URLParam(r, "id"), body.ParentID, caller.Name, body.Text)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, recipe)
}

// React handles POST /recipes/{id}/comments/{commentID}/reaction.
func (h *RecipeHandler) React(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var body struct {
		Kind domain.ReactionKind `json:"kind"`
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	recipe, err := h.writer.ReactToComment(caller.Email, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"), body.Kind)
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, recipe)
}

// Moderate handles POST /recipes/{id}/images/{index}/moderation.
func (h *RecipeHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "image index must be numeric")
		return
	}

	var body struct {
		Action string `json:"action"` // approve | reject
	}
	if err := common.ParseJSONBody(r, &body, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if body.Action != "approve" && body.Action != "reject" {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "action must be approve or reject")
		return
	}

	recipe, err := h.writer.ModerateImage(chi.URLParam(r, "id"), index, body.Action == "approve")
	if err != nil {
		respondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, recipe)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func respondAppError(w http.ResponseWriter, err error) {
	common.RespondError(w, apperrors.StatusOf(err), string(apperrors.TypeOf(err)), err.Error())
}
