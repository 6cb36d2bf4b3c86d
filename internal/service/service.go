// Package service implements the discussion engine's business rules on top
// of the repository layer: validation, permission checks, error mapping and
// live-feed notification after committed writes.
package service

import (
	"context"
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
)

// Broadcaster pushes committed thread mutations out to live subscribers.
// Implementations must only be invoked after the store transaction commits.
type Broadcaster interface {
	TopicUpdated(ctx context.Context, topicID uint)
	TopicDeleted(ctx context.Context, topicID uint)
}

// storeError maps a repository error onto the API error taxonomy. Record
// misses become NOT_FOUND for the named resource; anything else from the
// store is surfaced as STORE_UNAVAILABLE so callers can retry.
func storeError(err error, resource string, id uint) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewStoreUnavailableError(err)
}
