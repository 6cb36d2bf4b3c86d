package server

import (
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// setTopicFlag factors the shared shape of the four flag endpoints.
func (s *Server) setTopicFlag(c *fiber.Ctx, apply func(ctx *fiber.Ctx, userID, topicID uint) error, message string) error {
	userID := c.Locals("userID").(uint)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := apply(c, userID, topicID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  message,
		"topic_id": topicID,
	})
}

// LockTopic freezes a topic against new messages (moderator only)
func (s *Server) LockTopic(c *fiber.Ctx) error {
	return s.setTopicFlag(c, func(c *fiber.Ctx, userID, topicID uint) error {
		return s.moderationService.LockTopic(c.UserContext(), userID, topicID)
	}, "Topic locked")
}

// UnlockTopic reopens a locked topic (moderator only)
func (s *Server) UnlockTopic(c *fiber.Ctx) error {
	return s.setTopicFlag(c, func(c *fiber.Ctx, userID, topicID uint) error {
		return s.moderationService.UnlockTopic(c.UserContext(), userID, topicID)
	}, "Topic unlocked")
}

// PinTopic floats a topic to the top of every listing (moderator only)
func (s *Server) PinTopic(c *fiber.Ctx) error {
	return s.setTopicFlag(c, func(c *fiber.Ctx, userID, topicID uint) error {
		return s.moderationService.PinTopic(c.UserContext(), userID, topicID)
	}, "Topic pinned")
}

// UnpinTopic removes the pin (moderator only)
func (s *Server) UnpinTopic(c *fiber.Ctx) error {
	return s.setTopicFlag(c, func(c *fiber.Ctx, userID, topicID uint) error {
		return s.moderationService.UnpinTopic(c.UserContext(), userID, topicID)
	}, "Topic unpinned")
}

// DeleteTopic removes a topic with its whole thread (moderator only)
func (s *Server) DeleteTopic(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.moderationService.DeleteTopic(ctx, service.DeleteTopicInput{
		UserID:  userID,
		TopicID: topicID,
	}); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Topic deleted",
		"topic_id": topicID,
	})
}
