package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	gate           *middleware.AuthGate
	messageService *services.MessageService
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler accepting the given browser origins
func NewWebSocketHandler(
	hub *services.WSHub,
	gate *middleware.AuthGate,
	messageService *services.MessageService,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		gate:           gate,
		messageService: messageService,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket handles GET /api/ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on upgrade, so ?token= is accepted too
	identity := h.gate.ResolveIdentity(r)
	if identity == nil {
		identity = h.gate.ResolveToken(r.URL.Query().Get("token"))
	}
	if identity == nil {
		respondError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	userID := identity.UserID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := context.WithoutCancel(r.Context())
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	switch msg.Type {
	case "mark_read":
		return h.handleMarkRead(ctx, userID, msg)
	case "ping":
		return h.hub.SendToUser(userID, services.WSMessage{Type: "pong"})
	default:
		h.sendError(userID, "Unknown message type")
		return nil
	}
}

// handleMarkRead handles mark_read messages
func (h *WebSocketHandler) handleMarkRead(ctx context.Context, userID string, msg services.WSMessage) error {
	n, err := h.messageService.MarkRead(ctx, userID, msg.PropertyID)
	if err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			h.sendError(userID, validation.Message)
		case errors.Is(err, services.ErrNotFound):
			h.sendError(userID, "Property not found")
		default:
			h.sendError(userID, "Failed to mark messages read")
		}
		return err
	}
	return h.hub.NotifyRead(userID, msg.PropertyID, n)
}

func (h *WebSocketHandler) sendError(userID, message string) {
	if err := h.hub.SendError(userID, message); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send WebSocket error")
	}
}

// originChecker allows requests without an Origin header and those from allowed origins
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
