package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/doctor/internal/models"
)

// IndexFailureRepository stores search index writes that need replaying
type IndexFailureRepository struct {
	db *gorm.DB
}

// NewIndexFailureRepository creates a new dead letter repository
func NewIndexFailureRepository(db *gorm.DB) *IndexFailureRepository {
	return &IndexFailureRepository{db: db}
}

// Record stores a new dead letter
func (r *IndexFailureRepository) Record(ctx context.Context, failure *models.IndexFailure) error {
	if err := r.db.WithContext(ctx).Create(failure).Error; err != nil {
		return errors.Wrap(ErrCreateFailed, err.Error())
	}
	return nil
}

// FindUnresolved returns the oldest unresolved dead letters for an entity
func (r *IndexFailureRepository) FindUnresolved(ctx context.Context, entity string, limit int) ([]models.IndexFailure, error) {
	var failures []models.IndexFailure
	err := r.db.WithContext(ctx).
		Where("entity = ? AND resolved = ?", entity, false).
		Order("id ASC").
		Limit(limit).
		Find(&failures).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find unresolved index failures")
	}
	return failures, nil
}

// CountUnresolved returns the number of unresolved dead letters
func (r *IndexFailureRepository) CountUnresolved(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.IndexFailure{}).
		Where("resolved = ?", false).
		Count(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count index failures")
	}
	return total, nil
}

// MarkResolved flags a dead letter as replayed
func (r *IndexFailureRepository) MarkResolved(ctx context.Context, id uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.IndexFailure{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"resolved": true, "resolved_at": &now})
	if res.Error != nil {
		return errors.Wrap(ErrUpdateFailed, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementAttempts counts another failed replay
func (r *IndexFailureRepository) IncrementAttempts(ctx context.Context, id uint, lastErr string) error {
	res := r.db.WithContext(ctx).
		Model(&models.IndexFailure{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + 1"),
			"error":    lastErr,
		})
	if res.Error != nil {
		return errors.Wrap(ErrUpdateFailed, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
