package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AppendMessage adds a reply to a topic's thread (protected)
func (s *Server) AppendMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	created, err := s.messageService.AppendMessage(ctx, service.AppendMessageInput{
		UserID:  userID,
		TopicID: topicID,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetMessages returns a page of a topic's thread in canonical order (public)
func (s *Server) GetMessages(c *fiber.Ctx) error {
	ctx := c.UserContext()
	currentUserID, _ := s.optionalUserID(c)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	messages, err := s.messageService.ListMessages(ctx, topicID, p.Limit, p.Offset, currentUserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(messages)
}

// ToggleMessageLike flips the caller's like on one message (protected)
func (s *Server) ToggleMessageLike(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	liked, count, err := s.messageService.ToggleMessageLike(ctx, userID, messageID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message_id":  messageID,
		"liked":       liked,
		"likes_count": count,
	})
}

// DeleteMessage removes one reply (moderator-only)
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	deleted, err := s.moderationService.DeleteMessage(ctx, service.DeleteMessageInput{
		UserID:    userID,
		TopicID:   topicID,
		MessageID: messageID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Message deleted",
		"id":       deleted.ID,
		"topic_id": deleted.TopicID,
	})
}
