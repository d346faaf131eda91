package handlers

import (
	"net/http"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/models"
	"property-market-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration and session HTTP requests
type AuthHandler struct {
	userService   *services.UserService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler; secureCookies marks the session cookie Secure
func NewAuthHandler(userService *services.UserService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		secureCookies: secureCookies,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    sessionUser `json:"user"`
	Token   string      `json:"token"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")

	respondJSON(w, http.StatusCreated, registerResponse{
		Message: "User created successfully",
		User:    user,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(services.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Str("user_id", result.User.ID).Msg("User logged in")

	respondJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User: sessionUser{
			ID:    result.User.ID,
			Email: result.User.Email,
			Name:  result.User.Name,
			Phone: result.User.Phone,
		},
		Token: result.Token,
	})
}

// Logout handles POST /api/auth/logout. Tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
