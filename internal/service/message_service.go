package service

import (
	"context"
	"errors"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type MessageService struct {
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
}

type AppendMessageInput struct {
	UserID  uint
	TopicID uint
	Content string
}

func NewMessageService(messageRepo repository.MessageRepository, broadcaster Broadcaster) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		broadcaster: broadcaster,
	}
}

// AppendMessage adds a reply to a topic's thread. The append and the topic's
// counter update commit atomically; subscribers are notified only after the
// commit, so no feed ever shows a message the store could still roll back.
func (s *MessageService) AppendMessage(ctx context.Context, in AppendMessageInput) (*models.Message, error) {
	span, ctx := observability.NewSpan(ctx, "message.append")
	defer span.End()
	span.AddAttributes(attribute.Int("topic.id", int(in.TopicID)))

	if err := validation.ValidateMessageContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	message := &models.Message{
		Content: in.Content,
		UserID:  in.UserID,
		TopicID: in.TopicID,
	}
	if err := s.messageRepo.Append(ctx, message); err != nil {
		span.SetError(err)
		if errors.Is(err, repository.ErrTopicLocked) {
			return nil, models.NewTopicLockedError(in.TopicID)
		}
		return nil, storeError(err, "Topic", in.TopicID)
	}

	if s.broadcaster != nil {
		s.broadcaster.TopicUpdated(ctx, in.TopicID)
	}

	created, err := s.messageRepo.GetByID(ctx, message.ID, in.UserID)
	if err != nil {
		return nil, storeError(err, "Message", message.ID)
	}
	return created, nil
}

func (s *MessageService) ListMessages(ctx context.Context, topicID uint, limit, offset int, currentUserID uint) ([]*models.Message, error) {
	messages, err := s.messageRepo.ListByTopic(ctx, topicID, limit, offset, currentUserID)
	if err != nil {
		return nil, storeError(err, "Topic", topicID)
	}
	return messages, nil
}

// ToggleMessageLike flips the caller's like on one message. Like counts are
// part of the thread snapshot, so subscribers get a refresh.
func (s *MessageService) ToggleMessageLike(ctx context.Context, userID, messageID uint) (liked bool, count int64, err error) {
	message, err := s.messageRepo.GetByID(ctx, messageID, 0)
	if err != nil {
		return false, 0, storeError(err, "Message", messageID)
	}

	liked, count, err = s.messageRepo.ToggleLike(ctx, userID, messageID)
	if err != nil {
		return false, 0, storeError(err, "Message", messageID)
	}

	if s.broadcaster != nil {
		s.broadcaster.TopicUpdated(ctx, message.TopicID)
	}
	return liked, count, nil
}
