package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

type TopicService struct {
	topicRepo repository.TopicRepository
}

type CreateTopicInput struct {
	UserID   uint
	Title    string
	Category string
	Content  string
}

type ListTopicsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
	Category      string
	Sort          string
}

func NewTopicService(topicRepo repository.TopicRepository) *TopicService {
	return &TopicService{topicRepo: topicRepo}
}

func (s *TopicService) CreateTopic(ctx context.Context, in CreateTopicInput) (*models.Topic, error) {
	if err := validation.ValidateTopicTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateTopicContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	topic := &models.Topic{
		Title:    in.Title,
		Category: in.Category,
		Content:  in.Content,
		UserID:   in.UserID,
	}
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, storeError(err, "Topic", 0)
	}

	created, err := s.topicRepo.GetByID(ctx, topic.ID, in.UserID)
	if err != nil {
		return nil, storeError(err, "Topic", topic.ID)
	}
	return created, nil
}

// GetTopic returns one topic. Pure read; the view counter only moves when
// the client reports the visit through RecordView.
func (s *TopicService) GetTopic(ctx context.Context, topicID, currentUserID uint) (*models.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, topicID, currentUserID)
	if err != nil {
		return nil, storeError(err, "Topic", topicID)
	}
	return topic, nil
}

// RecordView bumps the topic's view counter by one. The counter is
// monotonic; duplicate reports over-count rather than lose a view.
func (s *TopicService) RecordView(ctx context.Context, topicID uint) error {
	if err := s.topicRepo.RecordView(ctx, topicID); err != nil {
		return storeError(err, "Topic", topicID)
	}
	return nil
}

func (s *TopicService) ListTopics(ctx context.Context, in ListTopicsInput) ([]*models.Topic, error) {
	if in.Category != "" {
		if err := validation.ValidateCategory(in.Category); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	topics, err := s.topicRepo.List(ctx, in.Limit, in.Offset, in.CurrentUserID, in.Category, in.Sort)
	if err != nil {
		return nil, storeError(err, "Topic", 0)
	}
	return topics, nil
}

// ToggleTopicLike flips the caller's like on the topic and returns the new
// state. Toggling twice lands back where it started; concurrent toggles by
// the same user converge instead of double-counting.
func (s *TopicService) ToggleTopicLike(ctx context.Context, userID, topicID uint) (liked bool, count int64, err error) {
	liked, count, err = s.topicRepo.ToggleLike(ctx, userID, topicID)
	if err != nil {
		return false, 0, storeError(err, "Topic", topicID)
	}
	return liked, count, nil
}
