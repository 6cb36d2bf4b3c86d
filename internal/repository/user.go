// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads the identity mirror. The identity provider owns
// accounts; this table only caches id, display name and the admin flag.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	IsAdmin(ctx context.Context, id uint) (bool, error)
	Upsert(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("is_admin").First(&user, id).Error; err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// Upsert refreshes the mirror row when the identity provider reports a user.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Where(models.User{ID: user.ID}).
		Assign(models.User{Username: user.Username, DisplayName: user.DisplayName}).
		FirstOrCreate(user).Error
}
