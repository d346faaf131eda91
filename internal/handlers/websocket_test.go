package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/models"
	"property-market-backend/internal/repository/memstore"
	"property-market-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

type wsFixture struct {
	db       *memstore.DB
	tokens   *services.TokenManager
	messages *services.MessageService
	url      string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	db := memstore.New()
	tokens := services.NewTokenManager(testSecret)
	messages := services.NewMessageService(db.Messages(), db.Users(), db.Properties(), nil)
	h := NewWebSocketHandler(services.NewWSHub(), middleware.NewAuthGate(tokens), messages, []string{"https://market.example.com"})

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	return &wsFixture{
		db:       db,
		tokens:   tokens,
		messages: messages,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (f *wsFixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Email: name + "@example.com", Name: name}
	require.NoError(t, f.db.Users().Create(context.Background(), u))
	return u
}

func (f *wsFixture) dial(t *testing.T, u *models.User) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.Issue(u.ID, u.Email, u.Name)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(f.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame any) services.WSMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply services.WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocket_RejectsAnonymous(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(f.url+"?token=bogus", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	f := newWSFixture(t)
	u := f.user(t, "alice")
	token, err := f.tokens.Issue(u.ID, u.Email, u.Name)
	require.NoError(t, err)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token="+token, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_PingAndUnknownType(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.user(t, "alice"))

	reply := roundTrip(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", reply.Type)

	reply = roundTrip(t, conn, map[string]string{"type": "subscribe"})
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Unknown message type", reply.Message)
}

func TestWebSocket_MarkRead(t *testing.T) {
	f := newWSFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	buyer := f.user(t, "bob")

	p := &models.Property{
		ID: uuid.NewString(), Title: "Loft", Price: 1, Location: "Porto", PropertyType: "apartment",
		Images: []string{}, OwnerID: owner.ID, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, f.db.Properties().Create(ctx, p))

	_, err := f.messages.Send(ctx, services.SendMessageInput{
		SenderID: buyer.ID, ReceiverID: owner.ID, PropertyID: p.ID, Content: "hello",
	})
	require.NoError(t, err)

	conn := f.dial(t, owner)

	reply := roundTrip(t, conn, map[string]string{"type": "mark_read", "property_id": p.ID})
	assert.Equal(t, "messages_read", reply.Type)
	assert.Equal(t, p.ID, reply.PropertyID)
	require.NotNil(t, reply.Count)
	assert.Equal(t, 1, *reply.Count)

	reply = roundTrip(t, conn, map[string]string{"type": "mark_read"})
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Property ID is required", reply.Message)

	reply = roundTrip(t, conn, map[string]string{"type": "mark_read", "property_id": uuid.NewString()})
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "Property not found", reply.Message)
}
