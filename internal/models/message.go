package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one reply inside a topic's thread. The canonical thread order
// is created_at ascending with id as tiebreaker; the composite index backs
// that ordering.
type Message struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Content string `gorm:"type:text;not null" json:"content"`
	UserID  uint   `gorm:"not null" json:"user_id"`
	TopicID uint   `gorm:"not null;index:idx_messages_topic_order,priority:1" json:"topic_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user"`

	// LikesCount and Liked are not persisted; computed at query time.
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	Liked      bool  `gorm:"->;-:migration" json:"liked"`

	CreatedAt time.Time      `gorm:"index:idx_messages_topic_order,priority:2" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Message) TableName() string { return "messages" }

// MessageLike is one user's membership in a message's like set.
type MessageLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_message_like_user_message" json:"user_id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_message_like_user_message" json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessageLike) TableName() string { return "message_likes" }
