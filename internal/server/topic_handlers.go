package server

import (
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"

	"agora/internal/models"
)

// CreateTopic opens a new discussion thread (protected)
func (s *Server) CreateTopic(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		Title    string `json:"title"`
		Category string `json:"category"`
		Content  string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	topic, err := s.topicService.CreateTopic(ctx, service.CreateTopicInput{
		UserID:   userID,
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(topic)
}

// GetTopics lists topics with optional category filter and sort (public)
func (s *Server) GetTopics(c *fiber.Ctx) error {
	ctx := c.UserContext()
	currentUserID, _ := s.optionalUserID(c)
	p := parsePagination(c, 20)

	topics, err := s.topicService.ListTopics(ctx, service.ListTopicsInput{
		Limit:         p.Limit,
		Offset:        p.Offset,
		CurrentUserID: currentUserID,
		Category:      c.Query("category"),
		Sort:          c.Query("sort", "new"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(topics)
}

// GetTopic returns one topic (public, pure read)
func (s *Server) GetTopic(c *fiber.Ctx) error {
	ctx := c.UserContext()
	currentUserID, _ := s.optionalUserID(c)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	topic, err := s.topicService.GetTopic(ctx, topicID, currentUserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(topic)
}

// RecordTopicView counts one visit to a topic (public)
func (s *Server) RecordTopicView(c *fiber.Ctx) error {
	ctx := c.UserContext()

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.topicService.RecordView(ctx, topicID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleTopicLike flips the caller's like on a topic (protected)
func (s *Server) ToggleTopicLike(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	topicID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, count, err := s.topicService.ToggleTopicLike(ctx, userID, topicID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"topic_id":    topicID,
		"liked":       liked,
		"likes_count": count,
	})
}
