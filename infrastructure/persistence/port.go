// Package persistence defines the port to the durable document store. The
// in-memory store is canonical while the process runs; this port only loads
// it at startup and absorbs write-through traffic afterwards.
package persistence

import (
	"context"

	"recipehub/domain"
)

// Port is the durable-store boundary. One document collection per entity
// type. No query capability beyond find-all is exposed on purpose; all
// filtering happens in the query engine against memory.
type Port interface {
	Ping(ctx context.Context) error

	AllRecipes(ctx context.Context) ([]domain.Recipe, error)
	AllAccounts(ctx context.Context) ([]domain.Account, error)
	AllReports(ctx context.Context) ([]domain.Report, error)
	AllNotifications(ctx context.Context) ([]domain.Notification, error)

	UpsertRecipe(ctx context.Context, r domain.Recipe) error
	UpsertAccount(ctx context.Context, a domain.Account) error
	UpsertReport(ctx context.Context, r domain.Report) error
	UpsertNotification(ctx context.Context, n domain.Notification) error

	DeleteRecipe(ctx context.Context, id string) error
	BulkUpsertRecipes(ctx context.Context, rs []domain.Recipe) error

	Close(ctx context.Context) error
}
