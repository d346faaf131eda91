package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"property-market-backend/internal/metrics"
	"property-market-backend/internal/models"
	"property-market-backend/internal/repository"

	"github.com/google/uuid"
)

// PropertyService handles property listing logic
type PropertyService struct {
	properties PropertyStore
}

// NewPropertyService creates a new property service
func NewPropertyService(properties PropertyStore) *PropertyService {
	return &PropertyService{properties: properties}
}

// PropertyInput carries listing fields; nil fields are left unchanged on update
type PropertyInput struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Location     *string  `json:"location"`
	PropertyType *string  `json:"propertyType"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	Area         *float64 `json:"area"`
	Images       []string `json:"images"`
}

// UnmarshalJSON accepts the numeric fields as JSON numbers or as form strings.
// An empty string or null leaves the field unset.
func (in *PropertyInput) UnmarshalJSON(data []byte) error {
	type plain PropertyInput
	var raw struct {
		plain
		Price     flexNumber `json:"price"`
		Bedrooms  flexNumber `json:"bedrooms"`
		Bathrooms flexNumber `json:"bathrooms"`
		Area      flexNumber `json:"area"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := PropertyInput(raw.plain)
	var err error
	if out.Price, err = raw.Price.asFloat("price"); err != nil {
		return err
	}
	if out.Area, err = raw.Area.asFloat("area"); err != nil {
		return err
	}
	if out.Bedrooms, err = raw.Bedrooms.asInt("bedrooms"); err != nil {
		return err
	}
	if out.Bathrooms, err = raw.Bathrooms.asInt("bathrooms"); err != nil {
		return err
	}
	*in = out
	return nil
}

// flexNumber holds the text of a JSON number or numeric string
type flexNumber struct {
	text string
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.text = strings.TrimSpace(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	n.text = num.String()
	return nil
}

func (n flexNumber) asFloat(field string) (*float64, error) {
	if n.text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(n.text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s %q", field, n.text)
	}
	return &v, nil
}

func (n flexNumber) asInt(field string) (*int, error) {
	if n.text == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(n.text)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", field, n.text)
	}
	return &v, nil
}

// Create lists a new property owned by ownerID
func (s *PropertyService) Create(ctx context.Context, ownerID string, in PropertyInput) (*models.Property, error) {
	if isBlank(in.Title) || in.Price == nil || isBlank(in.Location) || isBlank(in.PropertyType) {
		return nil, invalid("Title, price, location, and property type are required")
	}

	now := time.Now().UTC()
	p := &models.Property{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Images:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyPropertyInput(p, in)

	if err := validateProperty(p); err != nil {
		return nil, err
	}

	if err := s.properties.Create(ctx, p); err != nil {
		return nil, mapStoreError(err, "failed to create property")
	}

	metrics.PropertiesCreated.Inc()
	return s.Get(ctx, p.ID)
}

// Get retrieves a property by ID
func (s *PropertyService) Get(ctx context.Context, id string) (*models.Property, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("property %q: %w", id, ErrNotFound)
	}
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to get property")
	}
	return p, nil
}

// List retrieves all properties, or only those of ownerID when it is set
func (s *PropertyService) List(ctx context.Context, ownerID *string) ([]*models.Property, error) {
	properties, err := s.properties.List(ctx, models.PropertyFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// Search retrieves properties matching the filter, newest first
func (s *PropertyService) Search(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, invalid("minPrice must not exceed maxPrice")
	}
	if filter.Location != nil && strings.TrimSpace(*filter.Location) == "" {
		filter.Location = nil
	}

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return properties, nil
}

// Update applies a partial update; only the owner may edit a listing
func (s *PropertyService) Update(ctx context.Context, callerID, id string, in PropertyInput) (*models.Property, error) {
	p, err := s.authorizeOwner(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	applyPropertyInput(p, in)
	p.UpdatedAt = time.Now().UTC()

	if err := validateProperty(p); err != nil {
		return nil, err
	}

	if err := s.properties.Update(ctx, p); err != nil {
		return nil, mapStoreError(err, "failed to update property")
	}
	return s.Get(ctx, id)
}

// Delete removes a property; only the owner may delete a listing
func (s *PropertyService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.authorizeOwner(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.properties.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete property")
	}
	return nil
}

func (s *PropertyService) authorizeOwner(ctx context.Context, callerID, id string) (*models.Property, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != callerID {
		return nil, fmt.Errorf("user %s does not own property %s: %w", callerID, id, ErrForbidden)
	}
	return p, nil
}

func applyPropertyInput(p *models.Property, in PropertyInput) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = optionalString(in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.PropertyType != nil {
		p.PropertyType = strings.TrimSpace(*in.PropertyType)
	}
	if in.Bedrooms != nil {
		p.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = in.Bathrooms
	}
	if in.Area != nil {
		p.Area = in.Area
	}
	if in.Images != nil {
		p.Images = in.Images
	}
}

func validateProperty(p *models.Property) error {
	switch {
	case p.Title == "" || p.Location == "" || p.PropertyType == "":
		return invalid("Title, price, location, and property type are required")
	case p.Price <= 0:
		return invalid("Price must be positive")
	case p.Bedrooms != nil && *p.Bedrooms < 0:
		return invalid("Bedrooms must not be negative")
	case p.Bathrooms != nil && *p.Bathrooms < 0:
		return invalid("Bathrooms must not be negative")
	case p.Area != nil && *p.Area <= 0:
		return invalid("Area must be positive")
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
