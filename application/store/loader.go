package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipehub/infrastructure/persistence"
	"recipehub/pkg/observability"
)

// Loader performs the single full read of the durable store at startup.
// Nothing else ever re-scans the durable collections wholesale.
type Loader struct {
	port    persistence.Port
	store   *Store
	logger  *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewLoader wires the loader. timeout bounds the reachability probe and the
// initial scan together.
func NewLoader(port persistence.Port, st *Store, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *Loader {
	return &Loader{
		port:    port,
		store:   st,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// Load pulls every record of every entity type into memory, normalizes
// identifiers and precomputes derived durations, then marks the system
// connected. On any failure the store stays empty and the system runs
// degraded for the rest of the process; there is no retry loop.
func (l *Loader) Load(ctx context.Context) Mode {
	if l.port == nil {
		l.logger.Warn("no durable store configured, starting degraded")
		l.store.SetMode(ModeDegraded)
		return ModeDegraded
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.port.Ping(ctx); err != nil {
		l.logger.Warn("durable store unreachable, starting degraded", zap.Error(err))
		l.store.SetMode(ModeDegraded)
		return ModeDegraded
	}

	recipes, err := l.port.AllRecipes(ctx)
	if err != nil {
		return l.degrade("recipes", err)
	}
	accounts, err := l.port.AllAccounts(ctx)
	if err != nil {
		return l.degrade("accounts", err)
	}
	reports, err := l.port.AllReports(ctx)
	if err != nil {
		return l.degrade("reports", err)
	}
	notifications, err := l.port.AllNotifications(ctx)
	if err != nil {
		return l.degrade("notifications", err)
	}

	for i := range recipes {
		if strings.TrimSpace(recipes[i].ID) == "" {
			recipes[i].ID = uuid.New().String()
		}
		recipes[i].Normalize()
	}
	for i := range accounts {
		accounts[i].NormalizeEmail()
	}
	for i := range reports {
		if strings.TrimSpace(reports[i].ID) == "" {
			reports[i].ID = uuid.New().String()
		}
	}

	l.store.ReplaceRecipes(recipes)
	l.store.ReplaceAccounts(accounts)
	l.store.ReplaceReports(reports)
	l.store.ReplaceNotifications(notifications)
	l.store.SetMode(ModeConnected)

	if l.metrics != nil {
		l.metrics.StoreRecords.WithLabelValues("recipes").Set(float64(len(recipes)))
		l.metrics.StoreRecords.WithLabelValues("accounts").Set(float64(len(accounts)))
		l.metrics.StoreRecords.WithLabelValues("reports").Set(float64(len(reports)))
		l.metrics.StoreRecords.WithLabelValues("notifications").Set(float64(len(notifications)))
	}

	l.logger.Info("cache loaded",
		zap.Int("recipes", len(recipes)),
		zap.Int("accounts", len(accounts)),
		zap.Int("reports", len(reports)),
		zap.Int("notifications", len(notifications)),
	)
	return ModeConnected
}

func (l *Loader) degrade(entity string, err error) Mode {
	l.logger.Warn("initial scan failed, starting degraded",
		zap.String("entity", entity),
		zap.Error(err),
	)
	l.store.SetMode(ModeDegraded)
	return ModeDegraded
}
