package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicRepoStub is a stub for repository.TopicRepository.
type topicRepoStub struct {
	createFn     func(context.Context, *models.Topic) error
	getByIDFn    func(context.Context, uint, uint) (*models.Topic, error)
	listFn       func(context.Context, int, int, uint, string, string) ([]*models.Topic, error)
	recordViewFn func(context.Context, uint) error
	toggleLikeFn func(context.Context, uint, uint) (bool, int64, error)
	setFlagsFn   func(context.Context, uint, repository.TopicFlags) error
	deleteFn     func(context.Context, uint) error
}

func (s *topicRepoStub) Create(ctx context.Context, topic *models.Topic) error {
	return s.createFn(ctx, topic)
}
func (s *topicRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Topic, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *topicRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint, category, sort string) ([]*models.Topic, error) {
	return s.listFn(ctx, limit, offset, currentUserID, category, sort)
}
func (s *topicRepoStub) RecordView(ctx context.Context, id uint) error {
	return s.recordViewFn(ctx, id)
}
func (s *topicRepoStub) ToggleLike(ctx context.Context, userID, topicID uint) (bool, int64, error) {
	return s.toggleLikeFn(ctx, userID, topicID)
}
func (s *topicRepoStub) SetFlags(ctx context.Context, id uint, flags repository.TopicFlags) error {
	return s.setFlagsFn(ctx, id, flags)
}
func (s *topicRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopTopicRepo() *topicRepoStub {
	return &topicRepoStub{
		createFn: func(_ context.Context, topic *models.Topic) error {
			topic.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Topic, error) {
			return &models.Topic{ID: id, UserID: 1}, nil
		},
		listFn: func(_ context.Context, _, _ int, _ uint, _, _ string) ([]*models.Topic, error) {
			return nil, nil
		},
		recordViewFn: func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn: func(_ context.Context, _, _ uint) (bool, int64, error) { return true, 1, nil },
		setFlagsFn:   func(_ context.Context, _ uint, _ repository.TopicFlags) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	appendFn      func(context.Context, *models.Message) error
	getByIDFn     func(context.Context, uint, uint) (*models.Message, error)
	listByTopicFn func(context.Context, uint, int, int, uint) ([]*models.Message, error)
	toggleLikeFn  func(context.Context, uint, uint) (bool, int64, error)
	deleteFn      func(context.Context, uint) (*models.Message, error)
}

func (s *messageRepoStub) Append(ctx context.Context, message *models.Message) error {
	return s.appendFn(ctx, message)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *messageRepoStub) ListByTopic(ctx context.Context, topicID uint, limit, offset int, currentUserID uint) ([]*models.Message, error) {
	return s.listByTopicFn(ctx, topicID, limit, offset, currentUserID)
}
func (s *messageRepoStub) ToggleLike(ctx context.Context, userID, messageID uint) (bool, int64, error) {
	return s.toggleLikeFn(ctx, userID, messageID)
}
func (s *messageRepoStub) Delete(ctx context.Context, id uint) (*models.Message, error) {
	return s.deleteFn(ctx, id)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		appendFn: func(_ context.Context, message *models.Message) error {
			message.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Message, error) {
			return &models.Message{ID: id, UserID: 1, TopicID: 1}, nil
		},
		listByTopicFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Message, error) {
			return nil, nil
		},
		toggleLikeFn: func(_ context.Context, _, _ uint) (bool, int64, error) { return true, 1, nil },
		deleteFn: func(_ context.Context, id uint) (*models.Message, error) {
			return &models.Message{ID: id, UserID: 1, TopicID: 1}, nil
		},
	}
}

// broadcastRecorder records Broadcaster notifications for assertions.
type broadcastRecorder struct {
	mu      sync.Mutex
	updated []uint
	deleted []uint
}

func (b *broadcastRecorder) TopicUpdated(_ context.Context, topicID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, topicID)
}

func (b *broadcastRecorder) TopicDeleted(_ context.Context, topicID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, topicID)
}

func (b *broadcastRecorder) updatedTopics() []uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint(nil), b.updated...)
}

func (b *broadcastRecorder) deletedTopics() []uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint(nil), b.deleted...)
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
