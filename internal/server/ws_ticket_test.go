package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketTestServer(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := setupTestDB(t)
	s, err := NewServerWithDeps(&config.Config{
		JWTSecret: "test-secret",
		Env:       "test",
	}, db, client)
	require.NoError(t, err)
	return s, mr
}

func issueTicket(t *testing.T, s *Server, userID uint) string {
	t.Helper()
	app := fiber.New()
	app.Post("/api/ws/ticket", asUser(userID, s.IssueWSTicket))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Ticket)
	assert.Equal(t, int(wsTicketTTL.Seconds()), body.ExpiresIn)
	return body.Ticket
}

func authedApp(s *Server) *fiber.App {
	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	}
	app.Get("/api/ws/test", s.AuthRequired(), whoami)
	app.Get("/api/other", s.AuthRequired(), whoami)
	return app
}

func TestWSTicket_SingleUse(t *testing.T) {
	s, mr := newTicketTestServer(t)
	ticket := issueTicket(t, s, 42)

	key := fmt.Sprintf("ws_ticket:%s", ticket)
	require.True(t, mr.Exists(key))

	app := authedApp(s)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Redeemed atomically: the key is gone from Redis...
	assert.False(t, mr.Exists(key))

	// ...but the handshake can re-enter auth within the grace window.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID uint `json:"user_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint(42), body.UserID)
}

func TestWSTicket_InvalidTicketRejectedOnWSPath(t *testing.T) {
	s, _ := newTicketTestServer(t)
	app := authedApp(s)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket=nonsense", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_ExpiredTicketRejected(t *testing.T) {
	s, mr := newTicketTestServer(t)
	ticket := issueTicket(t, s, 7)

	mr.FastForward(wsTicketTTL + time.Second)

	app := authedApp(s)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_WorksOnNonWSPathToo(t *testing.T) {
	s, _ := newTicketTestServer(t)
	ticket := issueTicket(t, s, 9)

	app := authedApp(s)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/other?ticket="+ticket, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWSTicket_IssueWithoutRedisFails(t *testing.T) {
	s, _ := newTestServer(t)
	app := fiber.New()
	app.Post("/api/ws/ticket", asUser(1, s.IssueWSTicket))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthRequired_BearerToken(t *testing.T) {
	s, _ := newTestServer(t)
	app := authedApp(s)

	token := signTestJWT(t, s.config.JWTSecret, 11)
	req := httptest.NewRequest(http.MethodGet, "/api/other", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// No ticket and no header means no access.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/other", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_QueryTokenRejectedOnWSPath(t *testing.T) {
	s, _ := newTestServer(t)
	app := authedApp(s)

	token := signTestJWT(t, s.config.JWTSecret, 11)

	// Query-param JWTs are accepted on plain API routes...
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/other?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// ...but never on WebSocket routes, which must use tickets.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/test?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
