package models

import (
	"time"
)

// User mirrors the identity provider's view of an account. Authentication
// lives elsewhere; this row only carries what the discussion engine needs to
// attribute content and check moderator rights.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"size:60;not null;uniqueIndex" json:"username"`
	DisplayName string `gorm:"size:120" json:"display_name"`
	IsAdmin     bool   `gorm:"not null;default:false" json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
