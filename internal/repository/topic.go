// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// TopicFlags carries a partial moderation-flag update; nil fields are untouched.
type TopicFlags struct {
	Sticky *bool
	Locked *bool
}

// TopicRepository defines the interface for topic aggregate operations
type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Topic, error)
	List(ctx context.Context, limit, offset int, currentUserID uint, category, sort string) ([]*models.Topic, error)
	RecordView(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, topicID uint) (liked bool, count int64, err error)
	SetFlags(ctx context.Context, id uint, flags TopicFlags) error
	Delete(ctx context.Context, id uint) error
}

type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.LastActivityAt.IsZero() {
		topic.LastActivityAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *topicRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Topic, error) {
	var topic models.Topic
	err := r.applyTopicDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		First(&topic, id).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepository) List(ctx context.Context, limit, offset int, currentUserID uint, category, sort string) ([]*models.Topic, error) {
	defer observability.ObserveQuery("list", "topics", time.Now())

	var topics []*models.Topic
	base := r.applyTopicDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User")
	if category != "" {
		base = base.Where("category = ?", category)
	}
	err := r.applySort(base, sort).
		Limit(limit).
		Offset(offset).
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// applySort appends the ORDER BY clause for the requested sort type.
// Pinned topics always float to the top of the index.
func (r *topicRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "top":
		return db.Order("is_sticky DESC, likes_count DESC, created_at DESC")
	case "active":
		return db.Order("is_sticky DESC, last_activity_at DESC")
	default: // "new" and anything unrecognized
		return db.Order("is_sticky DESC, created_at DESC")
	}
}

// applyTopicDetails adds subqueries to fetch the like count and liked status in a single query.
func (r *topicRepository) applyTopicDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "topics.*, " +
		"(SELECT COUNT(*) FROM topic_likes WHERE topic_likes.topic_id = topics.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM topic_likes WHERE topic_likes.topic_id = topics.id AND topic_likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}

// RecordView bumps the view counter with a server-side increment so the
// counter never regresses under concurrent viewers. At-least-once: a retry
// after a dropped response counts twice, which is tolerated.
func (r *topicRepository) RecordView(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleLike flips the caller's membership in the topic's like set as one
// transaction. The conditional insert and the unique index make concurrent
// toggles by the same user converge instead of corrupting the set.
func (r *topicRepository) ToggleLike(ctx context.Context, userID, topicID uint) (bool, int64, error) {
	var liked bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Topic{}).Where("id = ?", topicID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		res := tx.Exec(
			`INSERT INTO topic_likes (user_id, topic_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (user_id, topic_id) DO NOTHING`,
			userID, topicID, time.Now().UTC(),
		)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			liked = true
		} else {
			// Already a member: this toggle is an unlike.
			if err := tx.Where("user_id = ? AND topic_id = ?", userID, topicID).
				Delete(&models.TopicLike{}).Error; err != nil {
				return err
			}
			liked = false
		}

		return tx.Model(&models.TopicLike{}).
			Where("topic_id = ?", topicID).
			Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// SetFlags applies a partial sticky/locked update. Setting a flag to its
// current value is a no-op success.
func (r *topicRepository) SetFlags(ctx context.Context, id uint, flags TopicFlags) error {
	updates := map[string]interface{}{}
	if flags.Sticky != nil {
		updates["is_sticky"] = *flags.Sticky
	}
	if flags.Locked != nil {
		updates["is_locked"] = *flags.Locked
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the topic and everything that existentially depends on it
// in one transaction: message likes, messages, topic likes, then the topic
// row itself. Readers never observe a partially cascaded state.
func (r *topicRepository) Delete(ctx context.Context, id uint) error {
	defer observability.ObserveQuery("cascade_delete", "topics", time.Now())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`DELETE FROM message_likes WHERE message_id IN (SELECT id FROM messages WHERE topic_id = ?)`,
			id,
		).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("topic_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", id).Delete(&models.TopicLike{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Topic{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
