package services

import (
	"context"
	"fmt"
	"sort"

	"property-market-backend/internal/models"
)

// ConversationService builds a user's inbox: one entry per property they take part in
type ConversationService struct {
	properties PropertyStore
	messages   MessageStore
}

// NewConversationService creates a new conversation service
func NewConversationService(properties PropertyStore, messages MessageStore) *ConversationService {
	return &ConversationService{
		properties: properties,
		messages:   messages,
	}
}

// ListConversationsFor returns every property the user owns or has messaged about.
// Entries with messages come first, newest latest message first; the rest follow, newest property first.
func (s *ConversationService) ListConversationsFor(ctx context.Context, userID string) ([]*models.Conversation, error) {
	properties, err := s.properties.ListInvolving(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	latest, err := s.messages.LatestForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest messages: %w", err)
	}
	latestByProperty := make(map[string]*models.Message, len(latest))
	for _, m := range latest {
		latestByProperty[m.PropertyID] = m
	}

	unread, err := s.messages.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	conversations := make([]*models.Conversation, 0, len(properties))
	for _, p := range properties {
		conversations = append(conversations, &models.Conversation{
			PropertyID:    p.ID,
			Title:         p.Title,
			Location:      p.Location,
			OwnerID:       p.OwnerID,
			LatestMessage: latestByProperty[p.ID],
			UnreadCount:   unread[p.ID],
			CreatedAt:     p.CreatedAt,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].LatestMessage, conversations[j].LatestMessage
		switch {
		case a != nil && b != nil:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
	})

	return conversations, nil
}
