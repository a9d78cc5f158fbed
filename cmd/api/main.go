package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipehub/infrastructure/config"
	"recipehub/infrastructure/di"
	"recipehub/interfaces/http/rest"
	"recipehub/interfaces/websocket"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	wsHandler := websocket.NewHandler(container.Hub, container.Logger)
	router := rest.NewRouter(cfg, container.Store, container.Writer, wsHandler, container.Metrics, container.Logger)

	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     router.Setup(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream connections stay open until the
		// client disconnects.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		container.Logger.Info("starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("mode", container.Mode.String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("server shutdown error", zap.Error(err))
	}
	container.Close(shutdownCtx)

	_ = container.Logger.Sync()
	log.Println("Server stopped")
}
