// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumTopics   int
	ShouldClean bool
}

var categories = []string{
	"general", "gaming", "music", "movies", "technology", "programming",
	"linux", "devops", "homelab", "science", "books", "food", "travel",
	"fitness", "finance", "ai",
}

// Seeder populates the database with fake discussion data.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// ClearAll removes all seeded data, children first so foreign keys hold.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Clearing existing data...")
	tables := []string{"message_likes", "topic_likes", "messages", "topics", "users"}
	for _, table := range tables {
		if err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Seed creates users, topics, messages, and likes per the options.
func (s *Seeder) Seed(opts Options) error {
	log.Printf("🌱 Seeding %d users and %d topics...", opts.NumUsers, opts.NumTopics)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("⚠️  Warning: could not clear all existing data, continuing anyway...")
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	topics, err := s.createTopics(users, opts.NumTopics)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	log.Printf("✓ %d topics created", len(topics))

	if err := s.createMessages(users, topics); err != nil {
		return fmt.Errorf("failed to create messages: %w", err)
	}
	if err := s.createLikes(users, topics); err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}

	log.Println("✨ Seeding complete")
	return nil
}

func (s *Seeder) createUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count+1)

	// One known moderator account for manual testing.
	admin := models.User{Username: "moderator", DisplayName: "Moderator", IsAdmin: true}
	if err := s.db.Where(models.User{Username: admin.Username}).FirstOrCreate(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		user := models.User{
			Username:    strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
			DisplayName: name,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createTopics(users []models.User, count int) ([]models.Topic, error) {
	topics := make([]models.Topic, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		topic := models.Topic{
			Title:          strings.TrimSuffix(gofakeit.Sentence(6), "."),
			Category:       categories[rand.Intn(len(categories))],
			Content:        gofakeit.Paragraph(1, 3, 8, "\n"),
			UserID:         author.ID,
			ViewCount:      int64(gofakeit.Number(0, 2500)),
			IsSticky:       gofakeit.Number(0, 19) == 0,
			IsLocked:       gofakeit.Number(0, 24) == 0,
			LastActivityAt: gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
		}
		if err := s.db.Create(&topic).Error; err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (s *Seeder) createMessages(users []models.User, topics []models.Topic) error {
	total := 0
	for i := range topics {
		count := gofakeit.Number(0, 25)
		for j := 0; j < count; j++ {
			author := users[rand.Intn(len(users))]
			message := models.Message{
				TopicID: topics[i].ID,
				UserID:  author.ID,
				Content: gofakeit.Paragraph(1, 2, 10, " "),
			}
			if err := s.db.Create(&message).Error; err != nil {
				return err
			}
			total++
		}
		if err := s.db.Model(&models.Topic{}).Where("id = ?", topics[i].ID).
			Update("reply_count", count).Error; err != nil {
			return err
		}
	}
	log.Printf("✓ %d messages created", total)
	return nil
}

func (s *Seeder) createLikes(users []models.User, topics []models.Topic) error {
	total := 0
	for i := range topics {
		for _, user := range users {
			if gofakeit.Number(0, 3) != 0 {
				continue
			}
			like := models.TopicLike{UserID: user.ID, TopicID: topics[i].ID}
			if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			total++
		}
	}
	log.Printf("✓ %d topic likes created", total)
	return nil
}
