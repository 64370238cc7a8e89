package database

import (
	"gorm.io/gorm"

	"taskboard/internal/domain"
)

// Migrate creates or updates the users and tasks tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Task{})
}
