package repository

import (
	"context"
	"fmt"
	"time"

	"property-market-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageSelect = `
	SELECT m.id, m.property_id, m.sender_id, m.receiver_id, m.content, m.created_at, m.read_at,
	       s.name, r.name
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id
`

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (id, property_id, sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.PropertyID, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("message references a missing record: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListForParticipant retrieves the messages on a property that the user sent or received, oldest first
func (r *MessageRepository) ListForParticipant(ctx context.Context, propertyID, userID string) ([]*models.Message, error) {
	query := messageSelect + `
		WHERE m.property_id = $1 AND (m.sender_id = $2 OR m.receiver_id = $2)
		ORDER BY m.created_at ASC, m.id ASC
	`
	return r.query(ctx, query, propertyID, userID)
}

// LatestForUser retrieves, per property, the newest message the user sent or received
func (r *MessageRepository) LatestForUser(ctx context.Context, userID string) ([]*models.Message, error) {
	query := `
		SELECT DISTINCT ON (m.property_id)
		       m.id, m.property_id, m.sender_id, m.receiver_id, m.content, m.created_at, m.read_at,
		       s.name, r.name
		FROM messages m
		JOIN users s ON s.id = m.sender_id
		JOIN users r ON r.id = m.receiver_id
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.property_id, m.created_at DESC, m.id DESC
	`
	return r.query(ctx, query, userID)
}

// UnreadCounts returns the number of unread messages received by the user, keyed by property
func (r *MessageRepository) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT property_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND read_at IS NULL
		GROUP BY property_id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			propertyID string
			count      int
		)
		if err := rows.Scan(&propertyID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count: %w", err)
		}
		counts[propertyID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread counts: %w", err)
	}

	return counts, nil
}

// MarkRead stamps read_at on the unread messages the user received on a property
func (r *MessageRepository) MarkRead(ctx context.Context, propertyID, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET read_at = $1
		WHERE property_id = $2 AND receiver_id = $3 AND read_at IS NULL
	`
	result, err := r.db.Exec(ctx, query, at, propertyID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *MessageRepository) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		m                        models.Message
		senderName, receiverName string
	)
	err := row.Scan(
		&m.ID, &m.PropertyID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt, &m.ReadAt,
		&senderName, &receiverName,
	)
	if err != nil {
		return nil, err
	}
	m.Sender = &models.UserSummary{ID: m.SenderID, Name: senderName}
	m.Receiver = &models.UserSummary{ID: m.ReceiverID, Name: receiverName}
	return &m, nil
}
