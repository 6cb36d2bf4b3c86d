package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	wsTicketTTL = 30 * time.Second
	// consumedTicketGrace keeps a GETDEL'd ticket valid in-process long
	// enough for the upgrade handshake to re-enter the auth middleware.
	consumedTicketGrace = 10 * time.Second
)

// IssueWSTicket mints a short-lived, single-use ticket the client presents
// as a query parameter when opening a WebSocket. Browsers cannot set an
// Authorization header on a WebSocket handshake, so the JWT is traded for a
// ticket over a normal authenticated request first.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewStoreUnavailableError(fmt.Errorf("ticket store unavailable")))
	}

	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewStoreUnavailableError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeTicket atomically redeems a ticket via GETDEL, then caches it
// in-process so a multi-pass handshake can re-validate the same ticket
// without it living on in Redis.
func (s *Server) consumeTicket(ctx context.Context, ticket string) (uint, bool) {
	now := time.Now()

	s.consumedTicketsMu.Lock()
	if entry, ok := s.consumedTickets[ticket]; ok {
		// Prune while holding the lock; the map stays tiny.
		for t, e := range s.consumedTickets {
			if now.After(e.expiresAt) {
				delete(s.consumedTickets, t)
			}
		}
		if now.Before(entry.expiresAt) {
			s.consumedTicketsMu.Unlock()
			return entry.userID, true
		}
		s.consumedTicketsMu.Unlock()
		return 0, false
	}
	s.consumedTicketsMu.Unlock()

	key := fmt.Sprintf("ws_ticket:%s", ticket)
	userIDStr, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return 0, false
	}

	s.consumedTicketsMu.Lock()
	s.consumedTickets[ticket] = consumedTicketEntry{
		userID:    uint(userID),
		expiresAt: now.Add(consumedTicketGrace),
	}
	s.consumedTicketsMu.Unlock()

	return uint(userID), true
}
