// Package catalog reads and maintains menu categories, items and the
// vocabularies customers pick from.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pickup-kitchen/apperr"
	"pickup-kitchen/logger"
	"pickup-kitchen/metrics"
	"pickup-kitchen/models"

	"gorm.io/gorm"
)

type Options struct {
	SentinelCategoryID uint
	RestaurantID       uint
	Timeout            time.Duration
	Logger             *logger.Logger
	Metrics            *metrics.Metrics
	Now                func() time.Time
}

type Store struct {
	db           *gorm.DB
	sentinelID   uint
	restaurantID uint
	timeout      time.Duration
	log          *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewStore(db *gorm.DB, opts Options) *Store {
	s := &Store{
		db:           db,
		sentinelID:   opts.SentinelCategoryID,
		restaurantID: opts.RestaurantID,
		timeout:      opts.Timeout,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

// SentinelCategoryID is the category listed under every other category.
func (s *Store) SentinelCategoryID() uint { return s.sentinelID }

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// DeactivateExpired switches off every active category whose end date has
// passed, except the sentinel. Safe to run concurrently: the only write is
// is_active going from true to false.
func (s *Store) DeactivateExpired(ctx context.Context) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.MenuCategory{}).
		Where("is_active = ? AND end_date < ? AND id <> ?", true, s.clock(), s.sentinelID).
		Update("is_active", false)
	if res.Error != nil {
		return 0, apperr.FromStorage(res.Error)
	}
	if res.RowsAffected > 0 {
		s.metrics.CategoriesDeactivated(res.RowsAffected)
		s.log.Info("categories_deactivated", "expired categories switched off",
			slog.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// ListVisibleCategories returns categories customers may browse, soonest
// expiring first.
func (s *Store) ListVisibleCategories(ctx context.Context, excludeSentinel bool) ([]models.MenuCategory, error) {
	if _, err := s.DeactivateExpired(ctx); err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Where("is_active = ? AND end_date > ? AND is_deleted = ?", true, s.clock(), false)
	if excludeSentinel {
		q = q.Where("id <> ?", s.sentinelID)
	}

	var categories []models.MenuCategory
	if err := q.Order("end_date ASC").Order("id ASC").Find(&categories).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return categories, nil
}

// ListItemsForCategory returns the available items linked to categoryID or
// to the sentinel category. An item linked to both appears once.
func (s *Store) ListItemsForCategory(ctx context.Context, categoryID uint) ([]models.MenuItem, error) {
	if _, err := s.DeactivateExpired(ctx); err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	linked := db.Model(&models.MenuItemCategory{}).
		Select("menu_item_id").
		Where("menu_category_id IN ? AND is_deleted = ?", []uint{categoryID, s.sentinelID}, false)

	var items []models.MenuItem
	err := db.Preload("FoodType").Preload("Quantities").
		Where("id IN (?)", linked).
		Where("is_available = ? AND is_deleted = ?", true, false).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return items, nil
}

// GetItemByID returns an orderable item.
func (s *Store) GetItemByID(ctx context.Context, id uint) (*models.MenuItem, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var item models.MenuItem
	err := db.Preload("FoodType").Preload("Quantities").
		Where("is_available = ? AND is_deleted = ?", true, false).
		First(&item, id).Error
	if err != nil {
		return nil, fmt.Errorf("menu item %d: %w", id, apperr.FromStorage(err))
	}
	return &item, nil
}

// GetCategory returns a category that has not been deleted, whatever its
// visibility window.
func (s *Store) GetCategory(ctx context.Context, id uint) (*models.MenuCategory, error) {
	if _, err := s.DeactivateExpired(ctx); err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var category models.MenuCategory
	if err := db.Where("is_deleted = ?", false).First(&category, id).Error; err != nil {
		return nil, fmt.Errorf("category %d: %w", id, apperr.FromStorage(err))
	}
	return &category, nil
}

func (s *Store) ListFoodTypes(ctx context.Context) ([]models.FoodType, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var types []models.FoodType
	if err := db.Where("is_deleted = ?", false).Order("id").Find(&types).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return types, nil
}

func (s *Store) ListQuantities(ctx context.Context) ([]models.Quantity, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var quantities []models.Quantity
	if err := db.Order("id").Find(&quantities).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return quantities, nil
}

func (s *Store) ListSubQuantities(ctx context.Context) ([]models.SubQuantity, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var subs []models.SubQuantity
	if err := db.Order("value").Find(&subs).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return subs, nil
}
