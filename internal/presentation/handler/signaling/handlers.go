package signaling

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/ws"
)

// Handler upgrades signaling connections, mints each one a connection id and
// hands it to the hub. The id is the participant's identity for its lifetime;
// clients never pick their own.
type Handler struct {
	hub        *ws.Hub
	dispatcher ws.Dispatcher
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

func NewHandler(hub *ws.Hub, dispatcher ws.Dispatcher, allowedOrigins []string, logger logging.Logger) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.Signaling, logging.Transport, "upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     r.RemoteAddr,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	connectionID := uuid.NewString()
	client := ws.NewClient(connectionID, conn, h.hub, h.dispatcher, h.logger)
	h.hub.Register(client)

	h.logger.Info(logging.Signaling, logging.Transport, "connection established", map[logging.ExtraKey]any{
		logging.ConnectionId: connectionID,
		logging.ClientIp:     r.RemoteAddr,
	})

	go client.WritePump()
	go client.ReadPump(context.Background())
}
