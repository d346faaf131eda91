package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"property-market-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const propertySelect = `
	SELECT p.id, p.title, p.description, p.price, p.location, p.property_type,
	       p.bedrooms, p.bathrooms, p.area, p.images, p.owner_id, p.created_at, p.updated_at,
	       u.name, u.email
	FROM properties p
	JOIN users u ON u.id = p.owner_id
`

// PropertyRepository handles database operations for properties
type PropertyRepository struct {
	db *pgxpool.Pool
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create creates a new property
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (id, title, description, price, location, property_type,
			bedrooms, bathrooms, area, images, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.Location, p.PropertyType,
		p.Bedrooms, p.Bathrooms, p.Area, p.Images, p.OwnerID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("owner not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// GetByID retrieves a property with its owner summary
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, propertySelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("property not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// List retrieves properties matching the filter, newest first
func (r *PropertyRepository) List(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	where, args := buildPropertyFilter(filter)
	query := propertySelect + where + ` ORDER BY p.created_at DESC`
	return r.query(ctx, query, args...)
}

// ListInvolving retrieves properties the user owns or has sent or received a message about
func (r *PropertyRepository) ListInvolving(ctx context.Context, userID string) ([]*models.Property, error) {
	query := propertySelect + `
		WHERE p.owner_id = $1
		   OR EXISTS (SELECT 1 FROM messages m WHERE m.property_id = p.id AND m.sender_id = $1)
		   OR EXISTS (SELECT 1 FROM messages m WHERE m.property_id = p.id AND m.receiver_id = $1)
		ORDER BY p.created_at DESC
	`
	return r.query(ctx, query, userID)
}

// Update overwrites the editable fields of a property
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	query := `
		UPDATE properties
		SET title = $1, description = $2, price = $3, location = $4, property_type = $5,
		    bedrooms = $6, bathrooms = $7, area = $8, images = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := r.db.Exec(ctx, query,
		p.Title, p.Description, p.Price, p.Location, p.PropertyType,
		p.Bedrooms, p.Bathrooms, p.Area, p.Images, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("property not found: %w", ErrNotFound)
	}
	return nil
}

// AppendImage adds an image URL to the end of a property's gallery
func (r *PropertyRepository) AppendImage(ctx context.Context, propertyID, imageURL string) error {
	query := `UPDATE properties SET images = array_append(images, $1), updated_at = NOW() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, imageURL, propertyID)
	if err != nil {
		return fmt.Errorf("failed to append property image: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("property not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes a property by ID
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("property not found: %w", ErrNotFound)
	}
	return nil
}

func (r *PropertyRepository) query(ctx context.Context, query string, args ...any) ([]*models.Property, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	properties := make([]*models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}

// likeEscaper makes user text match literally inside an ILIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildPropertyFilter renders the WHERE clause and positional args for a filter
func buildPropertyFilter(f models.PropertyFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.OwnerID != nil {
		add("p.owner_id = $%d", *f.OwnerID)
	}
	if f.Location != nil {
		add(`p.location ILIKE '%%' || $%d || '%%' ESCAPE '\'`, likeEscaper.Replace(*f.Location))
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.PropertyType != nil {
		add("p.property_type = $%d", *f.PropertyType)
	}
	if f.Bedrooms != nil {
		add("p.bedrooms >= $%d", *f.Bedrooms)
	}
	if f.Bathrooms != nil {
		add("p.bathrooms >= $%d", *f.Bathrooms)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p     models.Property
		owner models.UserSummary
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Location, &p.PropertyType,
		&p.Bedrooms, &p.Bathrooms, &p.Area, &p.Images, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
		&owner.Name, &owner.Email,
	)
	if err != nil {
		return nil, err
	}
	owner.ID = p.OwnerID
	p.Owner = &owner
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}
