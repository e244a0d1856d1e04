package postgres

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taskman/internal/taskapi/config"
)

// Store owns the database handle the repositories share.
type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{DB: gdb}, nil
}

// Migrate creates or updates the schema for both tables.
func (s *Store) Migrate() error {
	if err := s.DB.AutoMigrate(&userModel{}, &taskModel{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
