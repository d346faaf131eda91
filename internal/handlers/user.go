package handlers

import (
	"net/http"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles profile HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type updateProfileRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type pushTokenRequest struct {
	PushToken *string `json:"pushToken"`
}

// UpdateProfile handles PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req.Name, req.Phone)
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req pushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}

	log.Info().
		Str("user_id", userID).
		Bool("enabled", req.PushToken != nil && *req.PushToken != "").
		Msg("Push token updated")

	w.WriteHeader(http.StatusNoContent)
}
