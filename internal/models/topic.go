// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Topic is the root of one discussion thread: the opening post plus the
// moderation flags and counters that hang off it. Deleting a topic is a hard
// delete that cascades to its messages and likes.
type Topic struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"size:300;not null" json:"title"`
	Category string `gorm:"size:40;not null;index" json:"category"`
	Content  string `gorm:"type:text;not null" json:"content"`
	UserID   uint   `gorm:"not null" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`

	// ViewCount only ever grows; it is bumped server-side, never written
	// from request payloads.
	ViewCount  int64 `gorm:"not null;default:0" json:"view_count"`
	ReplyCount int64 `gorm:"not null;default:0" json:"reply_count"`
	IsSticky   bool  `gorm:"not null;default:false" json:"is_sticky"`
	IsLocked   bool  `gorm:"not null;default:false" json:"is_locked"`

	LastActivityAt time.Time `gorm:"not null;index" json:"last_activity_at"`

	// LikesCount and Liked are not persisted; computed at query time.
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	Liked      bool  `gorm:"->;-:migration" json:"liked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Topic) TableName() string { return "topics" }

// TopicLike is one user's membership in a topic's like set. The unique index
// makes duplicate likes impossible no matter how requests race.
type TopicLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_topic_like_user_topic" json:"user_id"`
	TopicID   uint      `gorm:"not null;uniqueIndex:idx_topic_like_user_topic" json:"topic_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (TopicLike) TableName() string { return "topic_likes" }
