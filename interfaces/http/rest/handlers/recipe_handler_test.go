package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/domain"
	"recipehub/interfaces/http/rest/middleware"
	"recipehub/pkg/common"
)

const (
	testMaxDuration = 240
	testPageSize    = 12
)

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(domain.EventType, interface{}) {}

func newTestRouter(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	st := store.New()
	st.SetMode(store.ModeConnected)
	wr := writer.New(st, nil, noopBroadcaster{}, zap.NewNop(), nil)
	h := NewRecipeHandler(st, wr, zap.NewNop(), testMaxDuration, testPageSize)

	r := chi.NewRouter()
	r.Get("/recipes", h.List)
	r.Get("/recipes/tags", h.Tags)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate("", ""))
		r.Post("/recipes", h.Upsert)
		r.Delete("/recipes/{id}", h.Delete)
		r.Post("/recipes/{id}/rating", h.Rate)
	})
	return st, r
}

func seedRecipes(st *store.Store) {
	for _, r := range []domain.Recipe{
		{ID: "quick", Name: "Сырники", Duration: "30 мин", Tags: []string{"завтрак"}},
		{ID: "slow", Name: "Борщ", Duration: "2 ч", Tags: []string{"суп", "обед"}},
		{ID: "marathon", Name: "Холодец", Duration: "8 ч", Tags: []string{"праздник"}},
	} {
		r.Normalize()
		st.UpsertRecipe(r)
	}
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func listIDs(t *testing.T, env common.APIResponse) []string {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var recipes []domain.Recipe
	require.NoError(t, json.Unmarshal(raw, &recipes))
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.ID
	}
	return out
}

func TestListAppliesDurationFilter(t *testing.T) {
	st, h := newTestRouter(t)
	seedRecipes(st)

	rec, env := doRequest(t, h, http.MethodGet, "/recipes?maxMinutes=60", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	assert.Equal(t, []string{"quick"}, listIDs(t, env))
	assert.Equal(t, 1, env.Meta.Pagination.Total)
}

func TestListCapValueMeansUnbounded(t *testing.T) {
	st, h := newTestRouter(t)
	seedRecipes(st)

	// The slider's maximum position is sent as the configured cap; it means
	// "no upper bound", so the 8-hour recipe is included.
	_, env := doRequest(t, h, http.MethodGet, "/recipes?maxMinutes=240", "")
	assert.Equal(t, 3, env.Meta.Pagination.Total)

	// One below the cap is an actual bound.
	_, env = doRequest(t, h, http.MethodGet, "/recipes?maxMinutes=239", "")
	assert.Equal(t, 2, env.Meta.Pagination.Total)
}

func TestListFiltersByTagsParam(t *testing.T) {
	st, h := newTestRouter(t)
	seedRecipes(st)

	_, env := doRequest(t, h, http.MethodGet, "/recipes?tags=суп,обед", "")
	assert.Equal(t, []string{"slow"}, listIDs(t, env))
}

func TestTagsEndpointReturnsDirectory(t *testing.T) {
	st, h := newTestRouter(t)
	seedRecipes(st)

	_, env := doRequest(t, h, http.MethodGet, "/recipes/tags", "")
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var tags []string
	require.NoError(t, json.Unmarshal(raw, &tags))
	assert.Equal(t, []string{"завтрак", "обед", "праздник", "суп"}, tags)
}

func TestUpsertRejectsMalformedBody(t *testing.T) {
	_, h := newTestRouter(t)

	rec, env := doRequest(t, h, http.MethodPost, "/recipes", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestUpsertStoresAndReturnsRecord(t *testing.T) {
	st, h := newTestRouter(t)

	body := `{"author":"dev","name":"Гречка","ingredients":"гречка, вода","steps":["варить"],"duration":"20 мин"}`
	rec, env := doRequest(t, h, http.MethodPost, "/recipes", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var saved domain.Recipe
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 20, saved.DurationMinutes)

	_, ok := st.RecipeByID(saved.ID)
	assert.True(t, ok)
}

func TestDeleteMissingRecipeIs404(t *testing.T) {
	_, h := newTestRouter(t)

	rec, env := doRequest(t, h, http.MethodDelete, "/recipes/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestMutationsReport503WhenDegraded(t *testing.T) {
	st := store.New()
	st.SetMode(store.ModeDegraded)
	wr := writer.New(st, nil, noopBroadcaster{}, zap.NewNop(), nil)
	h := NewRecipeHandler(st, wr, zap.NewNop(), testMaxDuration, testPageSize)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate("", ""))
	r.Post("/recipes", h.Upsert)

	body := `{"author":"dev","name":"Гречка","ingredients":"гречка","steps":["варить"]}`
	rec, env := doRequest(t, r, http.MethodPost, "/recipes", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAVAILABLE", env.Error.Code)
}

func TestRateRequiresKnownAccount(t *testing.T) {
	st, h := newTestRouter(t)
	seedRecipes(st)

	// The dev caller has no account record yet.
	rec, env := doRequest(t, h, http.MethodPost, "/recipes/quick/rating", `{"score":5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)

	st.UpsertAccount(domain.Account{Email: "dev@localhost", Name: "dev"})
	rec, env = doRequest(t, h, http.MethodPost, "/recipes/quick/rating", `{"score":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	got, _ := st.RecipeByID("quick")
	assert.Equal(t, 1, got.Rating.Count)
	assert.InDelta(t, 5.0, got.Rating.Mean, 1e-9)
}
