package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"property-market-backend/internal/models"
	"property-market-backend/internal/services"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "session"

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier checks a session token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*services.SessionClaims, error)
}

// AuthGate resolves the caller's identity from request credentials
type AuthGate struct {
	tokens TokenVerifier
}

// NewAuthGate creates a new auth gate
func NewAuthGate(tokens TokenVerifier) *AuthGate {
	return &AuthGate{tokens: tokens}
}

// ResolveIdentity tries the session cookie first, then the bearer header.
// It returns nil when neither carries a valid token.
func (g *AuthGate) ResolveIdentity(r *http.Request) *models.Identity {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id := g.identityFromToken(cookie.Value); id != nil {
			return id
		}
	}
	return g.identityFromToken(bearerToken(r))
}

// ResolveToken verifies a raw token, as passed in a websocket query string
func (g *AuthGate) ResolveToken(token string) *models.Identity {
	return g.identityFromToken(token)
}

// RequireAuth rejects requests without a valid identity
func (g *AuthGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := g.ResolveIdentity(r)
		if identity == nil {
			respondError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuth stores the identity when present and never rejects
func (g *AuthGate) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity := g.ResolveIdentity(r); identity != nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *AuthGate) identityFromToken(token string) *models.Identity {
	if token == "" {
		return nil
	}
	// tampered, expired and malformed tokens all mean "no identity"
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil
	}
	return &models.Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithIdentity stores a caller identity in the context
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the caller identity from context, or nil
func GetIdentity(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(identityKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetUserID extracts the caller's user ID from context
func GetUserID(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
