package config

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenTestDB opens a private in-memory sqlite database, migrated and seeded
// with the default configuration. Used by package tests.
func OpenTestDB() (*gorm.DB, *Config, error) {
	cfg := Default()
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
