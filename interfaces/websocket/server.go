package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the app origin; CORS policy is enforced
	// at the router level for the REST surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests into hub-registered event channels.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler creates the upgrade handler.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// ServeHTTP handles GET /ws. The connection is kept alive until the client
// disconnects; new connections receive no backlog of missed events.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	NewClient(h.hub, conn, h.logger).Start()
}
