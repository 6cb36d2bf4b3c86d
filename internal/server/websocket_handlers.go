package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/subscriptions"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

// feedEvent is the wire envelope for everything sent on a feed socket.
type feedEvent struct {
	Type     string                `json:"type"`
	TopicID  uint                  `json:"topic_id"`
	Messages []*models.Message     `json:"messages,omitempty"`
	Error    *models.ErrorResponse `json:"error,omitempty"`
}

// feedSession adapts one subscription to the client's hub contract: when the
// read pump sees the peer go away, unregistering cancels the subscription.
type feedSession struct {
	sub *subscriptions.Subscription
}

func (f *feedSession) UnregisterClient(_ *subscriptions.Client) { f.sub.Cancel() }
func (f *feedSession) Name() string                             { return "topic feed" }

// WebSocketFeedHandler streams live thread snapshots for one topic. The
// client receives the full current message list on connect and a fresh list
// after every committed append, delete or like change.
func (s *Server) WebSocketFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.ActiveWebSockets.Inc()
		defer observability.ActiveWebSockets.Dec()

		ctx := context.Background()

		// Get userID from context locals (set by AuthRequired middleware)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket Feed: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":{"error":"unauthorized"}}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		topicID, err := parseWSTopicID(conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":{"error":"invalid topic ID"}}`))
			_ = conn.Close()
			return
		}

		sub, err := s.hub.Subscribe(ctx, topicID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = models.NewNotFoundError("Topic", topicID)
			}
			writeSubscribeFailure(conn, topicID, err)
			_ = conn.Close()
			return
		}

		log.Printf("WebSocket: User %d subscribed to topic %d feed", userID, topicID)

		session := &feedSession{sub: sub}
		client := subscriptions.NewClient(session, conn, userID)

		go client.WritePump()
		go pumpSnapshots(sub, client)

		// Blocks until the peer disconnects, then cancels the subscription
		// through the session.
		client.ReadPump()
	})
}

// pumpSnapshots serializes each snapshot and hands it to the client's send
// buffer. A terminal snapshot carries the cause; the stream closes after it.
func pumpSnapshots(sub *subscriptions.Subscription, client *subscriptions.Client) {
	defer close(client.Send)

	for snap := range sub.Updates() {
		event := feedEvent{Type: "snapshot", TopicID: snap.TopicID, Messages: snap.Messages}
		if snap.Err != nil {
			event = terminalEvent(snap.TopicID, snap.Err)
		}

		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("feed snapshot marshal error for topic %d: %v", snap.TopicID, err)
			continue
		}
		client.TrySend(payload)

		if snap.Err != nil {
			return
		}
	}
}

func terminalEvent(topicID uint, cause error) feedEvent {
	if errors.Is(cause, subscriptions.ErrTopicGone) {
		return feedEvent{Type: "topic_deleted", TopicID: topicID}
	}

	resp := models.ErrorResponse{Error: cause.Error()}
	var appErr *models.AppError
	if errors.As(cause, &appErr) {
		resp = models.ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	}
	return feedEvent{Type: "error", TopicID: topicID, Error: &resp}
}

func writeSubscribeFailure(conn *websocket.Conn, topicID uint, cause error) {
	event := terminalEvent(topicID, cause)
	if payload, err := json.Marshal(event); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

func parseWSTopicID(conn *websocket.Conn) (uint, error) {
	id, err := strconv.ParseUint(conn.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid topic ID")
	}
	return uint(id), nil
}
