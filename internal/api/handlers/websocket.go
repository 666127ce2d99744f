package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/websocket"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub    *websocket.Hub
	tokens middleware.TokenValidator
	logger *slog.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, tokens middleware.TokenValidator, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		tokens: tokens,
		logger: logger,
	}
}

// Handle upgrades to a balance feed. Browsers cannot set headers on a
// websocket handshake, so the token travels as a query parameter.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		middleware.WriteUnauthenticated(w, "Token required")
		return
	}

	accountID, err := h.tokens.AccountIDFromToken(token)
	if err != nil {
		middleware.WriteUnauthenticated(w, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := websocket.NewClient(h.hub, conn, accountID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
