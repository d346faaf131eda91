package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"property-market-backend/internal/metrics"
	"property-market-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type       string      `json:"type"`
	PropertyID string      `json:"property_id,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A newer connection replaces the old one
	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	} else {
		metrics.WebSocketConnections.Inc()
	}

	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's connection if it is still the registered one
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.connections[userID]
	if !exists || client.conn != conn {
		return
	}

	client.conn.Close()
	delete(h.connections, userID)
	metrics.WebSocketConnections.Dec()
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyMessage pushes a newly stored message to its receiver
func (h *WSHub) NotifyMessage(msg *models.Message) error {
	return h.SendToUser(msg.ReceiverID, WSMessage{
		Type: "message_received",
		Data: msg,
	})
}

// NotifyRead tells a user how many of their messages on a property were marked read
func (h *WSHub) NotifyRead(userID, propertyID string, count int) error {
	return h.SendToUser(userID, WSMessage{
		Type:       "messages_read",
		PropertyID: propertyID,
		Count:      &count,
	})
}

// SendError replies to a user with an error frame
func (h *WSHub) SendError(userID, message string) error {
	return h.SendToUser(userID, WSMessage{
		Type:    "error",
		Message: message,
	})
}
