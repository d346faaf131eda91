package handlers

import (
	"net/http"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// MessageHandler handles messaging HTTP requests
type MessageHandler struct {
	messageService      *services.MessageService
	conversationService *services.ConversationService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService, conversationService *services.ConversationService) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
	}
}

// List handles GET /api/messages?propertyId=
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	messages, err := h.messageService.ListForProperty(r.Context(), userID, r.URL.Query().Get("propertyId"))
	if err != nil {
		respondServiceError(w, r, err, "Property not found")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// Send handles POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.SendMessageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SenderID = userID

	message, err := h.messageService.Send(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Receiver or property not found")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("property_id", message.PropertyID).
		Str("message_id", message.ID).
		Msg("Message sent")

	respondJSON(w, http.StatusCreated, message)
}

// Conversations handles GET /api/messages/properties
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.conversationService.ListConversationsFor(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Property not found")
		return
	}
	respondJSON(w, http.StatusOK, conversations)
}

// MarkRead handles POST /api/messages/read?propertyId=
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	n, err := h.messageService.MarkRead(r.Context(), userID, r.URL.Query().Get("propertyId"))
	if err != nil {
		respondServiceError(w, r, err, "Property not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}
