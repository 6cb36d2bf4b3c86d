// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// ErrTopicLocked reports an append attempted against a locked topic.
var ErrTopicLocked = errors.New("topic is locked")

// MessageRepository defines the interface for message operations
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Message, error)
	ListByTopic(ctx context.Context, topicID uint, limit, offset int, currentUserID uint) ([]*models.Message, error)
	ToggleLike(ctx context.Context, userID, messageID uint) (liked bool, count int64, err error)
	Delete(ctx context.Context, id uint) (*models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append persists the message and bumps the owning topic's reply_count and
// last_activity_at in the same transaction. The conditional UPDATE doubles
// as the lock check: it matches only a live, unlocked topic, and the row
// lock it takes serializes concurrent appends to one topic.
func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	defer observability.ObserveQuery("append", "messages", time.Now())

	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Topic{}).
			Where("id = ? AND is_locked = ?", message.TopicID, false).
			Updates(map[string]interface{}{
				"reply_count":      gorm.Expr("reply_count + 1"),
				"last_activity_at": message.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Missing or locked; look once more to tell the two apart.
			var exists int64
			if err := tx.Model(&models.Topic{}).Where("id = ?", message.TopicID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrTopicLocked
		}

		return tx.Create(message).Error
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Message, error) {
	var message models.Message
	err := r.applyMessageDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByTopic returns a page of the topic's messages in their canonical
// order: created_at ascending, ties broken by id.
func (r *messageRepository) ListByTopic(ctx context.Context, topicID uint, limit, offset int, currentUserID uint) ([]*models.Message, error) {
	defer observability.ObserveQuery("list", "messages", time.Now())

	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", topicID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var messages []*models.Message
	q := r.applyMessageDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("topic_id = ?", topicID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// applyMessageDetails adds subqueries to fetch the like count and liked status in a single query.
func (r *messageRepository) applyMessageDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "messages.*, " +
		"(SELECT COUNT(*) FROM message_likes WHERE message_likes.message_id = messages.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM message_likes WHERE message_likes.message_id = messages.id AND message_likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}

// ToggleLike mirrors the topic-level toggle, scoped to one message.
func (r *messageRepository) ToggleLike(ctx context.Context, userID, messageID uint) (bool, int64, error) {
	var liked bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Message{}).Where("id = ?", messageID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		res := tx.Exec(
			`INSERT INTO message_likes (user_id, message_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (user_id, message_id) DO NOTHING`,
			userID, messageID, time.Now().UTC(),
		)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			liked = true
		} else {
			if err := tx.Where("user_id = ? AND message_id = ?", userID, messageID).
				Delete(&models.MessageLike{}).Error; err != nil {
				return err
			}
			liked = false
		}

		return tx.Model(&models.MessageLike{}).
			Where("message_id = ?", messageID).
			Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Delete removes one message and decrements the owning topic's reply_count
// in the same transaction. Returns the deleted message so callers know which
// topic to republish.
func (r *messageRepository) Delete(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&message, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Message{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&models.Topic{}).
			Where("id = ?", message.TopicID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}
