package services

import (
	"context"
	"time"

	"property-market-backend/internal/models"
)

// UserStore persists user records
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID, name string, phone *string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// PropertyStore persists property listings
type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id string) (*models.Property, error)
	List(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)
	ListInvolving(ctx context.Context, userID string) ([]*models.Property, error)
	Update(ctx context.Context, p *models.Property) error
	AppendImage(ctx context.Context, propertyID, imageURL string) error
	Delete(ctx context.Context, id string) error
}

// MessageStore persists messages
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListForParticipant(ctx context.Context, propertyID, userID string) ([]*models.Message, error)
	LatestForUser(ctx context.Context, userID string) ([]*models.Message, error)
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)
	MarkRead(ctx context.Context, propertyID, userID string, at time.Time) (int64, error)
}
