package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/models"
	"property-market-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const propertyNotFound = "Property not found"

// PropertyHandler handles property-related HTTP requests
type PropertyHandler struct {
	propertyService *services.PropertyService
	imageService    *services.ImageService
}

// NewPropertyHandler creates a new property handler; imageService may be nil
func NewPropertyHandler(propertyService *services.PropertyService, imageService *services.ImageService) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		imageService:    imageService,
	}
}

// List handles GET /api/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	var ownerID *string
	if r.URL.Query().Get("mine") == "true" {
		if id := middleware.GetUserID(r.Context()); id != "" {
			ownerID = &id
		}
	}

	properties, err := h.propertyService.List(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

// Search handles GET /api/properties/search
func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePropertyFilter(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	properties, err := h.propertyService.Search(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

// Create handles POST /api/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.PropertyInput
	if !decodeJSON(w, r, &req) {
		return
	}

	property, err := h.propertyService.Create(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("property_id", property.ID).
		Msg("Property created")

	respondJSON(w, http.StatusCreated, property)
}

// Get handles GET /api/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	property, err := h.propertyService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}
	respondJSON(w, http.StatusOK, property)
}

// Update handles PUT /api/properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.PropertyInput
	if !decodeJSON(w, r, &req) {
		return
	}

	property, err := h.propertyService.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}
	respondJSON(w, http.StatusOK, property)
}

// Delete handles DELETE /api/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "id")

	if err := h.propertyService.Delete(r.Context(), userID, propertyID); err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("property_id", propertyID).
		Msg("Property deleted")

	respondJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

// RequestImageUpload handles POST /api/properties/{id}/images
func (h *PropertyHandler) RequestImageUpload(w http.ResponseWriter, r *http.Request) {
	if h.imageService == nil {
		respondError(w, "Image uploads are not configured", http.StatusServiceUnavailable)
		return
	}

	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "id")

	var req services.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		respondError(w, "filename is required", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	response, err := h.imageService.RequestUpload(r.Context(), userID, propertyID, req)
	if err != nil {
		respondServiceError(w, r, err, propertyNotFound)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("property_id", propertyID).
		Str("filename", req.Filename).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, response)
}

// parsePropertyFilter reads search predicates from the query string
func parsePropertyFilter(r *http.Request) (models.PropertyFilter, error) {
	q := r.URL.Query()
	var filter models.PropertyFilter

	if v := strings.TrimSpace(q.Get("location")); v != "" {
		filter.Location = &v
	}
	if v := strings.TrimSpace(q.Get("propertyType")); v != "" {
		filter.PropertyType = &v
	}

	floats := []struct {
		name string
		dst  **float64
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	}
	for _, f := range floats {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return filter, fmt.Errorf("Invalid value for %s", f.name)
		}
		*f.dst = &v
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"bedrooms", &filter.Bedrooms},
		{"bathrooms", &filter.Bathrooms},
	}
	for _, f := range ints {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("Invalid value for %s", f.name)
		}
		*f.dst = &v
	}

	return filter, nil
}
