package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"property-market-backend/internal/metrics"
	"property-market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const maxMessageLength = 5000

// MessageNotifier is told about every stored message so it can reach the receiver
type MessageNotifier interface {
	MessageSent(ctx context.Context, msg *models.Message)
}

// MessageService handles messaging between users about a property
type MessageService struct {
	messages   MessageStore
	users      UserStore
	properties PropertyStore
	notifier   MessageNotifier
	now        func() time.Time
}

// NewMessageService creates a new message service; notifier may be nil
func NewMessageService(messages MessageStore, users UserStore, properties PropertyStore, notifier MessageNotifier) *MessageService {
	return &MessageService{
		messages:   messages,
		users:      users,
		properties: properties,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendMessageInput represents a message to be sent
type SendMessageInput struct {
	SenderID   string `json:"-"`
	ReceiverID string `json:"receiverId"`
	PropertyID string `json:"propertyId"`
	Content    string `json:"content"`
}

// Send validates and stores a message, then hands it to the notifier
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if in.SenderID == "" || in.ReceiverID == "" || in.PropertyID == "" || content == "" {
		return nil, invalid("Property ID, receiver ID, and content are required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, invalid(fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}
	if in.SenderID == in.ReceiverID {
		return nil, invalid("Cannot send a message to yourself")
	}

	sender, err := s.lookupUser(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.lookupUser(ctx, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookupProperty(ctx, in.PropertyID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         ulid.Make().String(),
		PropertyID: in.PropertyID,
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		CreatedAt:  s.now(),
		Sender:     &models.UserSummary{ID: sender.ID, Name: sender.Name},
		Receiver:   &models.UserSummary{ID: receiver.ID, Name: receiver.Name},
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, mapStoreError(err, "failed to create message")
	}
	metrics.MessagesSent.Inc()

	if s.notifier != nil {
		go s.notifier.MessageSent(context.WithoutCancel(ctx), msg)
	}

	return msg, nil
}

// ListForProperty retrieves the caller's messages on a property, oldest first
func (s *MessageService) ListForProperty(ctx context.Context, userID, propertyID string) ([]*models.Message, error) {
	if propertyID == "" {
		return nil, invalid("Property ID is required")
	}
	if _, err := s.lookupProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListForParticipant(ctx, propertyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// MarkRead marks the messages the caller received on a property as read
func (s *MessageService) MarkRead(ctx context.Context, userID, propertyID string) (int, error) {
	if propertyID == "" {
		return 0, invalid("Property ID is required")
	}
	if _, err := s.lookupProperty(ctx, propertyID); err != nil {
		return 0, err
	}

	n, err := s.messages.MarkRead(ctx, propertyID, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return int(n), nil
}

func (s *MessageService) lookupUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to get user")
	}
	return user, nil
}

func (s *MessageService) lookupProperty(ctx context.Context, id string) (*models.Property, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("property %q: %w", id, ErrNotFound)
	}
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to get property")
	}
	return p, nil
}
