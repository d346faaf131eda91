package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"property-market-backend/internal/handlers"
	"property-market-backend/internal/middleware"
	"property-market-backend/internal/repository/memstore"
	"property-market-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "router-test-secret-0123456789abcdef"

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(pingErr error) http.Handler {
	db := memstore.New()
	tokens := services.NewTokenManager(testSecret)
	userService := services.NewUserService(db.Users(), services.NewPasswordHasher(bcrypt.MinCost), tokens)
	propertyService := services.NewPropertyService(db.Properties())
	messageService := services.NewMessageService(db.Messages(), db.Users(), db.Properties(), nil)
	conversationService := services.NewConversationService(db.Properties(), db.Messages())
	gate := middleware.NewAuthGate(tokens)

	return NewRouter(RouterDeps{
		AllowedOrigins: []string{"http://localhost:3000"},
		Gate:           gate,
		Auth:           handlers.NewAuthHandler(userService, false),
		Users:          handlers.NewUserHandler(userService),
		Properties:     handlers.NewPropertyHandler(propertyService, nil),
		Messages:       handlers.NewMessageHandler(messageService, conversationService),
		WebSocket:      handlers.NewWebSocketHandler(services.NewWSHub(), gate, messageService, nil),
		Health:         handlers.NewHealthHandler(stubPinger{err: pingErr}),
	})
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func registerAndLogin(t *testing.T, router http.Handler, name, email string) (*client, string) {
	t.Helper()
	c := &client{t: t, router: router}

	rec := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Message string `json:"message"`
		User    struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Login successful", body.Message)
	c.token = body.Token
	return c, body.User.ID
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter(nil)
	c, _ := registerAndLogin(t, router, "Alice", "alice@example.com")
	c.token = ""

	rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email and password are required"}`, rec.Body.String())
}

func TestLoginSetsSessionCookie(t *testing.T) {
	router := newTestRouter(nil)
	c, userID := registerAndLogin(t, router, "Alice", "alice@example.com")

	rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, 86400, session.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.False(t, session.Secure)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, userID, decode[map[string]any](t, me)["id"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := newTestRouter(nil)
	registerAndLogin(t, router, "Alice", "alice@example.com")

	c := &client{t: t, router: router}
	rec := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Again", "email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(nil)
	c := &client{t: t, router: router}

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/messages/properties"},
		{http.MethodPost, "/api/messages"},
		{http.MethodPost, "/api/properties"},
		{http.MethodGet, "/api/ws"},
	} {
		rec := c.do(route.method, route.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}

	c.token = "not.a.token"
	rec := c.do(http.MethodGet, "/api/messages/properties", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())
}

func TestMessagingFlow(t *testing.T) {
	router := newTestRouter(nil)
	alice, aliceID := registerAndLogin(t, router, "Alice", "alice@example.com")
	bob, bobID := registerAndLogin(t, router, "Bob", "bob@example.com")

	rec := alice.do(http.MethodPost, "/api/properties", map[string]any{
		"title": "Riverside flat", "price": 250000, "location": "Porto", "propertyType": "apartment", "bedrooms": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	propertyID := decode[map[string]any](t, rec)["id"].(string)

	// owner sees the listing in their inbox before any message
	rec = alice.do(http.MethodGet, "/api/messages/properties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = bob.do(http.MethodPost, "/api/messages", map[string]string{
		"propertyId": propertyID, "receiverId": aliceID, "content": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Property ID, receiver ID, and content are required"}`, rec.Body.String())

	rec = bob.do(http.MethodPost, "/api/messages", map[string]string{
		"propertyId": propertyID, "receiverId": aliceID, "content": "Is it available?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[map[string]any](t, rec)
	assert.Equal(t, bobID, sent["senderId"])

	rec = alice.do(http.MethodGet, "/api/messages/properties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]map[string]any](t, rec)
	require.Len(t, inbox, 1)
	assert.Equal(t, propertyID, inbox[0]["propertyId"])
	assert.Equal(t, float64(1), inbox[0]["unreadCount"])
	latest := inbox[0]["latestMessage"].(map[string]any)
	assert.Equal(t, "Is it available?", latest["content"])
	assert.Equal(t, bobID, latest["senderId"])

	rec = alice.do(http.MethodGet, "/api/messages?propertyId="+propertyID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = alice.do(http.MethodGet, "/api/messages", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = alice.do(http.MethodPost, "/api/messages/read?propertyId="+propertyID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = alice.do(http.MethodGet, "/api/messages/properties", nil)
	assert.Equal(t, float64(0), decode[[]map[string]any](t, rec)[0]["unreadCount"])
}

func TestPropertyRoutes(t *testing.T) {
	router := newTestRouter(nil)
	alice, _ := registerAndLogin(t, router, "Alice", "alice@example.com")
	bob, _ := registerAndLogin(t, router, "Bob", "bob@example.com")

	rec := alice.do(http.MethodPost, "/api/properties", map[string]any{"title": "No price"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = alice.do(http.MethodPost, "/api/properties", map[string]any{
		"title": "Villa", "price": 900000, "location": "Lisbon", "propertyType": "house",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = bob.do(http.MethodGet, "/api/properties?mine=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))

	anon := &client{t: t, router: router}
	rec = anon.do(http.MethodGet, "/api/properties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = anon.do(http.MethodGet, "/api/properties/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Villa", decode[map[string]any](t, rec)["title"])

	rec = anon.do(http.MethodGet, "/api/properties/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Property not found"}`, rec.Body.String())

	rec = anon.do(http.MethodGet, "/api/properties/search?location=lis&maxPrice=1000000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = anon.do(http.MethodGet, "/api/properties/search?minPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = anon.do(http.MethodGet, "/api/properties/search?minPrice=NaN", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = bob.do(http.MethodPut, "/api/properties/"+id, map[string]any{"price": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = alice.do(http.MethodPost, "/api/properties/"+id+"/images", map[string]string{"filename": "a.jpg"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = alice.do(http.MethodPut, "/api/properties/"+id, map[string]any{"price": 850000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(850000), decode[map[string]any](t, rec)["price"])

	rec = bob.do(http.MethodDelete, "/api/properties/"+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = alice.do(http.MethodDelete, "/api/properties/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	c := &client{t: t, router: newTestRouter(nil)}
	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "market_http_requests_total")

	down := &client{t: t, router: newTestRouter(errors.New("connection refused"))}
	rec = down.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreatePropertyAcceptsFormStrings(t *testing.T) {
	router := newTestRouter(nil)
	alice, _ := registerAndLogin(t, router, "Alice", "alice@example.com")

	rec := alice.do(http.MethodPost, "/api/properties", map[string]any{
		"title": "Flat", "price": "350000", "location": "Berlin", "propertyType": "apartment", "bedrooms": "",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, float64(350000), created["price"])
	assert.NotContains(t, created, "bedrooms")

	id := created["id"].(string)
	rec = alice.do(http.MethodPut, "/api/properties/"+id, map[string]any{"bedrooms": "3", "price": ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), updated["bedrooms"])
	assert.Equal(t, float64(350000), updated["price"])

	rec = alice.do(http.MethodPost, "/api/properties", map[string]any{
		"title": "Flat", "price": "lots", "location": "Berlin", "propertyType": "apartment",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEmailIsCaseSensitive(t *testing.T) {
	router := newTestRouter(nil)
	c, _ := registerAndLogin(t, router, "Alice", "Alice@example.com")
	c.token = ""

	rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Other", "email": "ALICE@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
