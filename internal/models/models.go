package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SetupModels runs auto-migration for every persisted model
func SetupModels(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Reply{},
		&Review{},
		&PaymentSettings{},
		&IndexFailure{},
	); err != nil {
		return errors.Wrap(err, "failed to migrate models")
	}
	return nil
}
