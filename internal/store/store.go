package store

import (
	"gorm.io/gorm"

	"legalmind/internal/models"
)

// Store bundles the relational persistence operations for all entities.
type Store struct {
	DB *gorm.DB
}

// NewStore creates a Store over an initialized GORM handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// AutoMigrate creates or updates the schema for all tracked entities.
func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Company{},
		&models.Document{},
		&models.DocumentChunk{},
		&models.ChatSession{},
		&models.ChatMessage{},
	)
}
