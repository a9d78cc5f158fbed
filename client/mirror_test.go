package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/application/query"
	"recipehub/domain"
)

func newDegraded(t *testing.T) *Mirror {
	t.Helper()
	m, err := New(Config{Mode: ModeDegraded})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Close)
	return m
}

func TestDegradedReadsServeBundledDataset(t *testing.T) {
	m := newDegraded(t)

	res, err := m.SearchRecipes(context.Background(), query.Criteria{MaxMinutes: query.NoDurationCap})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	// The bundled records run through the same derivation as live ones.
	r, ok := m.Recipe(context.Background(), "fallback-borscht")
	require.True(t, ok)
	assert.Equal(t, 120, r.DurationMinutes)
}

func TestCriteriaQueryEscapesReservedCharacters(t *testing.T) {
	raw := criteriaQuery(query.Criteria{
		Text: "борщ & сметана",
		Tags: []string{"суп", "обед"},
		Page: 2,
	})

	require.True(t, strings.HasPrefix(raw, "?"))
	vals, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	require.NoError(t, err)
	assert.Equal(t, "борщ & сметана", vals.Get("q"))
	assert.Equal(t, "суп,обед", vals.Get("tags"))
	assert.Equal(t, "2", vals.Get("page"))
}

func TestDegradedQueryEngineFiltersBundledRecords(t *testing.T) {
	m := newDegraded(t)

	// Борщ is 120 min, Оливье 75, Сырники 30.
	res, err := m.SearchRecipes(context.Background(), query.Criteria{
		MinMinutes: 60,
		MaxMinutes: query.NoDurationCap,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	res, err = m.SearchRecipes(context.Background(), query.Criteria{
		Tags:       []string{"завтрак"},
		MaxMinutes: query.NoDurationCap,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "fallback-syrniki", res.Data[0].ID)
}

func TestDegradedSaveIsSessionLocal(t *testing.T) {
	m := newDegraded(t)

	saved, err := m.SaveRecipe(context.Background(), domain.Recipe{
		Author:      "me",
		Name:        "Гречка",
		Ingredients: "гречка, вода",
		Steps:       []string{"варить"},
		Duration:    "20 мин",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "local-"))
	assert.Equal(t, 20, saved.DurationMinutes)

	// The local record shows up in subsequent reads.
	res, err := m.SearchRecipes(context.Background(), query.Criteria{MaxMinutes: query.NoDurationCap})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)

	got, ok := m.Recipe(context.Background(), saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Гречка", got.Name)
}

func TestLocalRecordShadowsBundledRecord(t *testing.T) {
	m := newDegraded(t)

	_, err := m.SaveRecipe(context.Background(), domain.Recipe{
		ID:          "fallback-borscht",
		Author:      "me",
		Name:        "Борщ по-домашнему",
		Ingredients: "свекла",
		Steps:       []string{"варить"},
	})
	require.NoError(t, err)

	res, err := m.SearchRecipes(context.Background(), query.Criteria{MaxMinutes: query.NoDurationCap})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	got, ok := m.Recipe(context.Background(), "fallback-borscht")
	require.True(t, ok)
	assert.Equal(t, "Борщ по-домашнему", got.Name)
}

func TestDegradedWritesFailFast(t *testing.T) {
	m := newDegraded(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.Register(ctx, "a@b.c", "a", "pw"), ErrUnavailable)
	assert.ErrorIs(t, m.Report(ctx, "fallback-borscht", "spam", ""), ErrUnavailable)
	assert.ErrorIs(t, m.MarkNotificationRead(ctx, "n1"), ErrUnavailable)
}

func TestAutoModeProbeFailureStartsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	m, err := New(Config{BaseURL: url, Mode: ModeAuto})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, ModeDegraded, m.Mode())

	// Degraded is terminal: reads still work, from the bundled dataset.
	res, err := m.SearchRecipes(context.Background(), query.Criteria{MaxMinutes: query.NoDurationCap})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestConnectedSearchUsesServerAndRecordsViewState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/recipes", r.URL.Path)
		assert.Equal(t, "борщ", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    []domain.Recipe{{ID: "srv-1", Name: "Борщ"}},
			"meta": map[string]interface{}{
				"pagination": map[string]int{"page": 1, "total": 1, "pages": 1},
			},
		})
	}))
	t.Cleanup(srv.Close)

	m, err := New(Config{BaseURL: srv.URL, Mode: ModeConnected})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	res, err := m.SearchRecipes(context.Background(), query.Criteria{Text: "борщ"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "srv-1", res.Data[0].ID)
	assert.Equal(t, 1, res.Total)

	view := m.View()
	require.Len(t, view.RecipeList, 1)
	assert.Equal(t, "srv-1", view.RecipeList[0].ID)
}

func TestConnectedReadFailureFallsBackToOfflineSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m, err := New(Config{BaseURL: url, Mode: ModeConnected})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	res, err := m.SearchRecipes(context.Background(), query.Criteria{MaxMinutes: query.NoDurationCap})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestFailedSaveDegradesSessionAndLandsLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "UNAVAILABLE", "message": "writes are disabled"},
		})
	}))
	t.Cleanup(srv.Close)

	m, err := New(Config{BaseURL: srv.URL, Mode: ModeConnected})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	saved, err := m.SaveRecipe(context.Background(), domain.Recipe{
		Author:      "me",
		Name:        "Гречка",
		Ingredients: "гречка",
		Steps:       []string{"варить"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "local-"))
	assert.Equal(t, ModeDegraded, m.Mode())

	// Further writes fail fast once degraded.
	assert.ErrorIs(t, m.Register(context.Background(), "a@b.c", "a", "pw"), ErrUnavailable)
}

func mustRaw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestHandleEventUpdatesCurrentRecipeInPlace(t *testing.T) {
	m := newDegraded(t)

	m.ShowRecipe(domain.Recipe{ID: "r1", Name: "Старое имя"})

	m.HandleEvent(domain.EventRecipeUpserted, mustRaw(t, domain.Recipe{ID: "r1", Name: "Новое имя"}))

	view := m.View()
	require.NotNil(t, view.CurrentRecipe)
	assert.Equal(t, "Новое имя", view.CurrentRecipe.Name)

	// An event for a different identity leaves the screen alone.
	m.HandleEvent(domain.EventRecipeUpserted, mustRaw(t, domain.Recipe{ID: "r2", Name: "Другой"}))
	assert.Equal(t, "Новое имя", m.View().CurrentRecipe.Name)
}

func TestHandleEventReconcilesRecipeList(t *testing.T) {
	m := newDegraded(t)

	m.mu.Lock()
	m.view.RecipeList = []domain.Recipe{{ID: "r1", Name: "Один"}, {ID: "r2", Name: "Два"}}
	m.mu.Unlock()

	m.HandleEvent(domain.EventRecipeUpserted, mustRaw(t, domain.Recipe{ID: "r2", Name: "Два исправленный"}))
	assert.Equal(t, "Два исправленный", m.View().RecipeList[1].Name)

	m.HandleEvent(domain.EventRecipeDeleted, mustRaw(t, domain.DeletedPayload{ID: "r1"}))
	list := m.View().RecipeList
	require.Len(t, list, 1)
	assert.Equal(t, "r2", list[0].ID)
}

func TestHandleEventDeleteClearsCurrentRecipe(t *testing.T) {
	m := newDegraded(t)
	m.ShowRecipe(domain.Recipe{ID: "r1"})

	m.HandleEvent(domain.EventRecipeDeleted, mustRaw(t, domain.DeletedPayload{ID: "r1"}))

	assert.Nil(t, m.View().CurrentRecipe)
}

func TestHandleEventImportInvalidatesList(t *testing.T) {
	m := newDegraded(t)
	m.mu.Lock()
	m.view.RecipeList = []domain.Recipe{{ID: "r1"}}
	m.mu.Unlock()

	m.HandleEvent(domain.EventImportCompleted, mustRaw(t, domain.ImportPayload{Count: 10}))

	assert.Nil(t, m.View().RecipeList)
}

func TestHandleEventMaintainsAccountDirectory(t *testing.T) {
	m := newDegraded(t)

	m.HandleEvent(domain.EventAccountUpserted, mustRaw(t, domain.PublicAccount{Email: "a@b.c", Name: "One"}))
	m.HandleEvent(domain.EventAccountUpserted, mustRaw(t, domain.PublicAccount{Email: "a@b.c", Name: "Renamed"}))
	m.HandleEvent(domain.EventAccountUpserted, mustRaw(t, domain.PublicAccount{Email: "x@y.z", Name: "Two"}))

	accounts := m.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "Renamed", accounts[0].Name)

	m.ShowAccount(accounts[0])
	m.HandleEvent(domain.EventAccountUpserted, mustRaw(t, domain.PublicAccount{Email: "a@b.c", Name: "Again"}))
	assert.Equal(t, "Again", m.View().CurrentAccount.Name)
}

func TestHandleEventCollectsNotifications(t *testing.T) {
	m := newDegraded(t)

	m.HandleEvent(domain.EventNotificationCreated, mustRaw(t, domain.Notification{ID: "n1", Title: "Hi"}))
	m.HandleEvent(domain.EventNotificationCreated, mustRaw(t, domain.Notification{ID: "n1", Title: "Hi", Read: true}))
	m.HandleEvent(domain.EventNotificationCreated, mustRaw(t, domain.Notification{ID: "n2"}))

	notifs := m.Notifications()
	require.Len(t, notifs, 2)
	assert.True(t, notifs[0].Read)
}

func TestHandleEventIgnoresMalformedPayload(t *testing.T) {
	m := newDegraded(t)
	m.ShowRecipe(domain.Recipe{ID: "r1", Name: "Цело"})

	m.HandleEvent(domain.EventRecipeUpserted, json.RawMessage(`{broken`))

	assert.Equal(t, "Цело", m.View().CurrentRecipe.Name)
}
