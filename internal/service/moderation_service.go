package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ModerationService carries the privileged operations: lock, pin, delete.
// Every call re-checks the caller's moderator bit against the store rather
// than trusting anything cached in the request.
type ModerationService struct {
	topicRepo   repository.TopicRepository
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type DeleteTopicInput struct {
	UserID  uint
	TopicID uint
}

type DeleteMessageInput struct {
	UserID    uint
	TopicID   uint
	MessageID uint
}

func NewModerationService(
	topicRepo repository.TopicRepository,
	messageRepo repository.MessageRepository,
	broadcaster Broadcaster,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *ModerationService {
	return &ModerationService{
		topicRepo:   topicRepo,
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		isAdmin:     isAdmin,
	}
}

func (s *ModerationService) requireAdmin(ctx context.Context, userID uint) error {
	if s.isAdmin == nil {
		return models.NewPermissionError("Moderator privileges required")
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return storeError(err, "User", userID)
	}
	if !admin {
		return models.NewPermissionError("Moderator privileges required")
	}
	return nil
}

// setFlag applies one moderation flag. Setting a flag to the value it
// already has succeeds without complaint; moderators retrying is normal.
func (s *ModerationService) setFlag(ctx context.Context, userID, topicID uint, flags repository.TopicFlags) error {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return err
	}
	if err := s.topicRepo.SetFlags(ctx, topicID, flags); err != nil {
		return storeError(err, "Topic", topicID)
	}
	return nil
}

// LockTopic freezes a topic: existing messages stay readable, new appends
// are rejected with TOPIC_LOCKED.
func (s *ModerationService) LockTopic(ctx context.Context, userID, topicID uint) error {
	locked := true
	return s.setFlag(ctx, userID, topicID, repository.TopicFlags{Locked: &locked})
}

func (s *ModerationService) UnlockTopic(ctx context.Context, userID, topicID uint) error {
	locked := false
	return s.setFlag(ctx, userID, topicID, repository.TopicFlags{Locked: &locked})
}

// PinTopic floats a topic to the top of every listing regardless of sort.
func (s *ModerationService) PinTopic(ctx context.Context, userID, topicID uint) error {
	sticky := true
	return s.setFlag(ctx, userID, topicID, repository.TopicFlags{Sticky: &sticky})
}

func (s *ModerationService) UnpinTopic(ctx context.Context, userID, topicID uint) error {
	sticky := false
	return s.setFlag(ctx, userID, topicID, repository.TopicFlags{Sticky: &sticky})
}

// DeleteTopic removes a topic and its whole thread. Moderator-only, like
// every other operation here; authors included. Live feeds of the topic are
// terminated so no subscriber keeps watching a ghost.
func (s *ModerationService) DeleteTopic(ctx context.Context, in DeleteTopicInput) error {
	span, ctx := observability.NewSpan(ctx, "topic.cascade_delete")
	defer span.End()
	span.AddAttributes(attribute.Int("topic.id", int(in.TopicID)))

	if err := s.requireAdmin(ctx, in.UserID); err != nil {
		return err
	}

	if _, err := s.topicRepo.GetByID(ctx, in.TopicID, 0); err != nil {
		return storeError(err, "Topic", in.TopicID)
	}

	if err := s.topicRepo.Delete(ctx, in.TopicID); err != nil {
		span.SetError(err)
		return storeError(err, "Topic", in.TopicID)
	}

	if s.broadcaster != nil {
		s.broadcaster.TopicDeleted(ctx, in.TopicID)
	}
	return nil
}

// DeleteMessage removes one reply (moderator-only) and refreshes the
// topic's live feeds. The message must belong to the given topic.
func (s *ModerationService) DeleteMessage(ctx context.Context, in DeleteMessageInput) (*models.Message, error) {
	if err := s.requireAdmin(ctx, in.UserID); err != nil {
		return nil, err
	}

	message, err := s.messageRepo.GetByID(ctx, in.MessageID, 0)
	if err != nil {
		return nil, storeError(err, "Message", in.MessageID)
	}
	if message.TopicID != in.TopicID {
		return nil, models.NewNotFoundError("Message", in.MessageID)
	}

	deleted, err := s.messageRepo.Delete(ctx, in.MessageID)
	if err != nil {
		return nil, storeError(err, "Message", in.MessageID)
	}

	if s.broadcaster != nil {
		s.broadcaster.TopicUpdated(ctx, deleted.TopicID)
	}
	return deleted, nil
}
