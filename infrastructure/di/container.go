// Package di assembles the application's dependency graph. The container is
// small enough to wire by hand; each provider mirrors one constructor.
package di

import (
	"context"

	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/infrastructure/config"
	"recipehub/infrastructure/persistence"
	"recipehub/infrastructure/persistence/mongodb"
	"recipehub/interfaces/websocket"
	"recipehub/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *store.Store
	Port    persistence.Port
	Hub     *websocket.Hub
	Writer  *writer.Coordinator
	Metrics *observability.Metrics
	Mode    store.Mode
}

// InitializeContainer builds the full dependency graph and runs the startup
// cache load. A durable store that cannot be reached within the configured
// timeout leaves the process in degraded mode; that is not an error.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	st := store.New()

	var port persistence.Port
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	mongoStore, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, logger)
	cancel()
	if err != nil {
		logger.Warn("durable store connect failed", zap.Error(err))
	} else {
		port = mongoStore
	}

	loader := store.NewLoader(port, st, logger, metrics, cfg.ConnectTimeout)
	mode := loader.Load(ctx)

	hub := websocket.NewHub(logger, metrics)
	go hub.Run()

	coordinator := writer.New(st, port, hub, logger, metrics)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Port:    port,
		Hub:     hub,
		Writer:  coordinator,
		Metrics: metrics,
		Mode:    mode,
	}, nil
}

// ProvideLogger creates the process logger for the environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Close releases the container's external resources.
func (c *Container) Close(ctx context.Context) {
	c.Hub.Shutdown()
	if c.Port != nil {
		if err := c.Port.Close(ctx); err != nil {
			c.Logger.Warn("closing durable store", zap.Error(err))
		}
	}
}
