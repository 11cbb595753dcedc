package config

import (
	"fmt"
	"time"

	"pickup-kitchen/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenDB connects with the configured driver, migrates every model and seeds
// master data. Seeding is idempotent.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		dialector = sqlite.Open(cfg.Database.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers anyway; one connection keeps in-memory DSNs shared.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.FoodType{},
		&models.Quantity{},
		&models.SubQuantity{},
		&models.MenuCategory{},
		&models.MenuItem{},
		&models.MenuItemCategory{},
		&models.PickupTime{},
		&models.OrderStatusMaster{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.OrderStatusHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Seed inserts the lookup rows the order core relies on.
func Seed(db *gorm.DB, cfg *Config) error {
	statuses := make([]models.OrderStatusMaster, 0, 6)
	for _, s := range models.AllStatuses() {
		statuses = append(statuses, models.OrderStatusMaster{ID: uint(s), Name: s.String(), IsActive: true})
	}

	quantities := []models.Quantity{{Size: "Full"}, {Size: "Half"}, {Size: "Quarter"}}
	subQuantities := make([]models.SubQuantity, 0, 9)
	for i := 1; i <= 9; i++ {
		quantities = append(quantities, models.Quantity{Size: fmt.Sprint(i)})
		subQuantities = append(subQuantities, models.SubQuantity{Value: i})
	}

	foodTypes := []models.FoodType{
		{ID: 1, Name: "Starter"},
		{ID: 2, Name: "Main Course"},
		{ID: 3, Name: "Dessert"},
		{ID: 4, Name: "Beverage"},
	}

	now := time.Now().UTC()
	restaurant := models.Restaurant{ID: cfg.Restaurant.ID, Name: "Pickup Kitchen", IsOpen: true}
	sentinel := models.MenuCategory{
		ID:           cfg.Restaurant.SentinelCategoryID,
		Name:         "Everyday",
		Description:  "Always on the menu",
		IsActive:     true,
		RestaurantID: cfg.Restaurant.ID,
		StartDate:    now,
		EndDate:      now.AddDate(50, 0, 0),
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, rows := range []any{&statuses, &quantities, &subQuantities, &foodTypes, &restaurant, &sentinel} {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
				return fmt.Errorf("failed to seed master data: %w", err)
			}
		}
		if cfg.Database.Driver == "postgres" {
			return syncSequences(tx, "restaurants", "menu_categories", "food_types")
		}
		return nil
	})
}

// syncSequences moves serial counters past explicitly seeded ids.
func syncSequences(tx *gorm.DB, tables ...string) error {
	for _, table := range tables {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 1))", table)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to sync sequence for %s: %w", table, err)
		}
	}
	return nil
}
