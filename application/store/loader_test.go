package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipehub/domain"
)

// fakePort is an in-test persistence port. err, when set, fails every call.
type fakePort struct {
	err           error
	recipes       []domain.Recipe
	accounts      []domain.Account
	reports       []domain.Report
	notifications []domain.Notification
}

func (f *fakePort) Ping(context.Context) error { return f.err }

func (f *fakePort) AllRecipes(context.Context) ([]domain.Recipe, error) {
	return f.recipes, f.err
}
func (f *fakePort) AllAccounts(context.Context) ([]domain.Account, error) {
	return f.accounts, f.err
}
func (f *fakePort) AllReports(context.Context) ([]domain.Report, error) {
	return f.reports, f.err
}
func (f *fakePort) AllNotifications(context.Context) ([]domain.Notification, error) {
	return f.notifications, f.err
}

func (f *fakePort) UpsertRecipe(context.Context, domain.Recipe) error             { return f.err }
func (f *fakePort) UpsertAccount(context.Context, domain.Account) error           { return f.err }
func (f *fakePort) UpsertReport(context.Context, domain.Report) error             { return f.err }
func (f *fakePort) UpsertNotification(context.Context, domain.Notification) error { return f.err }
func (f *fakePort) DeleteRecipe(context.Context, string) error                    { return f.err }
func (f *fakePort) BulkUpsertRecipes(context.Context, []domain.Recipe) error      { return f.err }
func (f *fakePort) Close(context.Context) error                                   { return nil }

func TestLoaderPopulatesStoreAndDerivesDurations(t *testing.T) {
	port := &fakePort{
		recipes: []domain.Recipe{
			{ID: "r1", Name: "Борщ", Duration: "1 ч 30 мин"},
			{Name: "Сырники", Duration: "45 мин"}, // blank ID gets generated
		},
		accounts: []domain.Account{{Email: "User@Example.COM", Name: "u"}},
	}
	st := New()
	loader := NewLoader(port, st, zap.NewNop(), nil, time.Second)

	mode := loader.Load(context.Background())

	require.Equal(t, ModeConnected, mode)
	assert.Equal(t, ModeConnected, st.Mode())

	recipes := st.Recipes()
	require.Len(t, recipes, 2)
	assert.Equal(t, 90, recipes[0].DurationMinutes)
	assert.Equal(t, 45, recipes[1].DurationMinutes)
	assert.NotEmpty(t, recipes[1].ID)

	accounts := st.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "user@example.com", accounts[0].Email)
}

func TestLoaderUnreachableStoreStartsDegraded(t *testing.T) {
	port := &fakePort{err: errors.New("connection refused")}
	st := New()
	loader := NewLoader(port, st, zap.NewNop(), nil, 100*time.Millisecond)

	mode := loader.Load(context.Background())

	assert.Equal(t, ModeDegraded, mode)
	assert.Equal(t, ModeDegraded, st.Mode())

	// Queries return empty rather than failing.
	assert.Empty(t, st.Recipes())
	assert.Empty(t, st.RecipesByIDs([]string{"anything"}))
}

func TestLoaderNilPortStartsDegraded(t *testing.T) {
	st := New()
	loader := NewLoader(nil, st, zap.NewNop(), nil, time.Second)

	assert.Equal(t, ModeDegraded, loader.Load(context.Background()))
}
