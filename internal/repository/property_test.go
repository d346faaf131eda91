package repository

import (
	"testing"

	"property-market-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestBuildPropertyFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    models.PropertyFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no predicates",
			filter:    models.PropertyFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "owner only",
			filter:    models.PropertyFilter{OwnerID: ptr("owner-1")},
			wantWhere: " WHERE p.owner_id = $1",
			wantArgs:  []any{"owner-1"},
		},
		{
			name: "location and price range",
			filter: models.PropertyFilter{
				Location: ptr("lisbon"),
				MinPrice: ptr(100000.0),
				MaxPrice: ptr(250000.0),
			},
			wantWhere: ` WHERE p.location ILIKE '%' || $1 || '%' ESCAPE '\' AND p.price >= $2 AND p.price <= $3`,
			wantArgs:  []any{"lisbon", 100000.0, 250000.0},
		},
		{
			name:      "location wildcards are literal",
			filter:    models.PropertyFilter{Location: ptr(`50%_off\`)},
			wantWhere: ` WHERE p.location ILIKE '%' || $1 || '%' ESCAPE '\'`,
			wantArgs:  []any{`50\%\_off\\`},
		},
		{
			name: "type and rooms",
			filter: models.PropertyFilter{
				PropertyType: ptr("apartment"),
				Bedrooms:     ptr(2),
				Bathrooms:    ptr(1),
			},
			wantWhere: " WHERE p.property_type = $1 AND p.bedrooms >= $2 AND p.bathrooms >= $3",
			wantArgs:  []any{"apartment", 2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildPropertyFilter(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"users", "properties", "messages"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schema, "read_at")
}
