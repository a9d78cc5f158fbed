package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/application/writer"
	"recipehub/infrastructure/config"
	"recipehub/interfaces/http/rest/handlers"
	"recipehub/interfaces/http/rest/middleware"
	"recipehub/interfaces/websocket"
	"recipehub/pkg/observability"
)

// Router wires the HTTP surface.
type Router struct {
	cfg     *config.Config
	store   *store.Store
	writer  *writer.Coordinator
	ws      *websocket.Handler
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRouter creates a router instance.
func NewRouter(cfg *config.Config, st *store.Store, wr *writer.Coordinator, ws *websocket.Handler, metrics *observability.Metrics, logger *zap.Logger) *Router {
	return &Router{cfg: cfg, store: st, writer: wr, ws: ws, metrics: metrics, logger: logger}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", rt.healthCheck)
	r.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics && rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Event stream: one long-lived connection per client.
	r.Get("/ws", rt.ws.ServeHTTP)

	recipeHandler := handlers.NewRecipeHandler(rt.store, rt.writer, rt.logger, rt.cfg.MaxDurationMinutes, rt.cfg.DefaultPageSize)
	accountHandler := handlers.NewAccountHandler(rt.store, rt.writer, rt.logger)
	reportHandler := handlers.NewReportHandler(rt.store, rt.writer, rt.logger)
	notificationHandler := handlers.NewNotificationHandler(rt.store, rt.writer, rt.logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Reads are public; everything else needs a verified caller.
		r.Get("/recipes", recipeHandler.List)
		r.Get("/recipes/tags", recipeHandler.Tags)
		r.Get("/accounts", accountHandler.Directory)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.cfg.JWTSecret, rt.cfg.JWTIssuer))

			r.Post("/recipes", recipeHandler.Upsert)
			r.Delete("/recipes/{id}", recipeHandler.Delete)
			r.Post("/recipes/{id}/rating", recipeHandler.Rate)
			r.Post("/recipes/{id}/comments", recipeHandler.Comment)
			r.Post("/recipes/{id}/comments/{commentID}/reaction", recipeHandler.React)

			r.Post("/accounts", accountHandler.Upsert)
			r.Post("/accounts/favorites/{recipeID}", accountHandler.ToggleFavorite)

			r.Post("/reports", reportHandler.Create)

			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

			// Staff surface.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff)

				r.Post("/recipes/import", recipeHandler.Import)
				r.Post("/recipes/{id}/images/{index}/moderation", recipeHandler.Moderate)
				r.Get("/reports", reportHandler.List)
				r.Post("/reports/{id}/resolve", reportHandler.Resolve)
				r.Post("/announce", notificationHandler.Announce)
			})
		})
	})

	return r
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`)) //nolint:errcheck
}

// readinessCheck reports the connectivity mode decided at startup so load
// balancers and the client mirror can tell degraded from connected.
func (rt *Router) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","mode":"` + rt.store.Mode().String() + `"}`)) //nolint:errcheck
}
