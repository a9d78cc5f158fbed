// Package mongodb implements the persistence port against a MongoDB
// database. The driver's query engine is deliberately unused beyond full
// collection scans at startup.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"recipehub/domain"
)

const (
	collRecipes       = "recipes"
	collAccounts      = "accounts"
	collReports       = "reports"
	collNotifications = "notifications"
)

// Store is the MongoDB adapter for the persistence port.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials the database. The caller bounds ctx; a failure here is how
// the process learns it must run degraded.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", coll.Name(), err)
	}
	return out, nil
}

func (s *Store) AllRecipes(ctx context.Context) ([]domain.Recipe, error) {
	return findAll[domain.Recipe](ctx, s.db.Collection(collRecipes))
}

func (s *Store) AllAccounts(ctx context.Context) ([]domain.Account, error) {
	return findAll[domain.Account](ctx, s.db.Collection(collAccounts))
}

func (s *Store) AllReports(ctx context.Context) ([]domain.Report, error) {
	return findAll[domain.Report](ctx, s.db.Collection(collReports))
}

func (s *Store) AllNotifications(ctx context.Context) ([]domain.Notification, error) {
	return findAll[domain.Notification](ctx, s.db.Collection(collNotifications))
}

func (s *Store) upsert(ctx context.Context, coll string, id interface{}, doc interface{}) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	if err != nil {
		return fmt.Errorf("upserting into %s: %w", coll, err)
	}
	return nil
}

func (s *Store) UpsertRecipe(ctx context.Context, r domain.Recipe) error {
	return s.upsert(ctx, collRecipes, r.ID, r)
}

func (s *Store) UpsertAccount(ctx context.Context, a domain.Account) error {
	return s.upsert(ctx, collAccounts, a.Email, a)
}

func (s *Store) UpsertReport(ctx context.Context, r domain.Report) error {
	return s.upsert(ctx, collReports, r.ID, r)
}

func (s *Store) UpsertNotification(ctx context.Context, n domain.Notification) error {
	return s.upsert(ctx, collNotifications, n.ID, n)
}

func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	res, err := s.db.Collection(collRecipes).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", collRecipes, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// BulkUpsertRecipes batches the durable writes of an import into one
// BulkWrite call. Per-record validation and derivation happen before this.
func (s *Store) BulkUpsertRecipes(ctx context.Context, rs []domain.Recipe) error {
	if len(rs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(rs))
	for _, r := range rs {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(r).
			SetUpsert(true))
	}

	_, err := s.db.Collection(collRecipes).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upserting %d recipes: %w", len(rs), err)
	}
	return nil
}
