package repository

import (
	"testing"
	"time"

	"agora/internal/database"
	"agora/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, DisplayName: username}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedTopic(t *testing.T, db *gorm.DB, userID uint, mutate func(*models.Topic)) models.Topic {
	t.Helper()
	topic := models.Topic{
		Title:          "Seeded topic",
		Category:       "general",
		Content:        "opening post",
		UserID:         userID,
		LastActivityAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&topic)
	}
	if err := db.Create(&topic).Error; err != nil {
		t.Fatalf("seed topic: %v", err)
	}
	return topic
}

func seedMessage(t *testing.T, db *gorm.DB, topicID, userID uint, content string, at time.Time) models.Message {
	t.Helper()
	message := models.Message{TopicID: topicID, UserID: userID, Content: content, CreatedAt: at}
	if err := db.Create(&message).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return message
}
