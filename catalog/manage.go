package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pickup-kitchen/apperr"
	"pickup-kitchen/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveCategory creates the category (zero ID) or updates it, and replaces
// the set of items linked to it.
func (s *Store) SaveCategory(ctx context.Context, category *models.MenuCategory, itemIDs []uint) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return apperr.Invalid("name", "category name is required")
	}
	category.StartDate = category.StartDate.UTC()
	category.EndDate = category.EndDate.UTC()
	if !category.EndDate.After(category.StartDate) {
		return apperr.Invalid("end_date", "end date must be after start date")
	}
	if category.RestaurantID == 0 {
		category.RestaurantID = s.restaurantID
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if category.ID == 0 {
			if err := tx.Create(category).Error; err != nil {
				return err
			}
		} else {
			var existing models.MenuCategory
			if err := tx.Where("is_deleted = ?", false).First(&existing, category.ID).Error; err != nil {
				return err
			}
			category.CreatedAt = existing.CreatedAt
			if err := tx.Omit("created_at").Save(category).Error; err != nil {
				return err
			}
		}
		if err := requireLive(tx, &models.MenuItem{}, itemIDs, "item_ids", "unknown menu item"); err != nil {
			return err
		}
		return relink(tx, "menu_category_id", category.ID, "menu_item_id", itemIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to save category: %w", apperr.FromStorage(err))
	}
	return nil
}

// DeleteCategory soft deletes a category. The sentinel cannot be deleted.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	if id == s.sentinelID {
		return apperr.Invalid("id", "the always-on category cannot be deleted")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.MenuCategory{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "is_active": false})
	if res.Error != nil {
		return apperr.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SaveMenuItem creates or updates an item and replaces its supported
// quantities and category links.
func (s *Store) SaveMenuItem(ctx context.Context, item *models.MenuItem, quantityIDs, categoryIDs []uint) error {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.Name == "":
		return apperr.Invalid("name", "item name is required")
	case !item.Price.IsPositive():
		return apperr.Invalid("price", "price must be greater than zero")
	case !item.Price.Equal(item.Price.Round(2)):
		return apperr.Invalid("price", "price must have at most two decimal places")
	case item.FoodTypeID == 0:
		return apperr.Invalid("food_type_id", "food type is required")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var foodType models.FoodType
		if err := tx.Where("is_deleted = ?", false).First(&foodType, item.FoodTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Invalid("food_type_id", "unknown food type")
			}
			return err
		}

		if item.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
				return err
			}
		} else {
			var existing models.MenuItem
			if err := tx.Where("is_deleted = ?", false).First(&existing, item.ID).Error; err != nil {
				return err
			}
			item.CreatedAt = existing.CreatedAt
			if err := tx.Omit(clause.Associations, "created_at").Save(item).Error; err != nil {
				return err
			}
		}

		var quantities []models.Quantity
		if len(quantityIDs) > 0 {
			if err := tx.Where("id IN ?", quantityIDs).Find(&quantities).Error; err != nil {
				return err
			}
			if len(quantities) != len(dedup(quantityIDs)) {
				return apperr.Invalid("quantity_ids", "unknown quantity")
			}
		}
		assoc := tx.Model(item).Association("Quantities")
		var assocErr error
		if len(quantities) == 0 {
			assocErr = assoc.Clear()
		} else {
			assocErr = assoc.Replace(quantities)
		}
		if assocErr != nil {
			return assocErr
		}
		item.Quantities = quantities
		item.FoodType = &foodType

		if err := requireLive(tx, &models.MenuCategory{}, categoryIDs, "category_ids", "unknown category"); err != nil {
			return err
		}
		return relink(tx, "menu_item_id", item.ID, "menu_category_id", categoryIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to save menu item: %w", apperr.FromStorage(err))
	}
	return nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.MenuItem{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "is_available": false})
	if res.Error != nil {
		return apperr.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("menu item %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListAllItems is the owner view: unavailable items included, deleted ones not.
func (s *Store) ListAllItems(ctx context.Context) ([]models.MenuItem, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var items []models.MenuItem
	err := db.Preload("FoodType").Preload("Quantities").
		Where("is_deleted = ?", false).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return items, nil
}

func (s *Store) ListPickupTimes(ctx context.Context, activeOnly bool) ([]models.PickupTime, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var times []models.PickupTime
	if err := q.Find(&times).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return times, nil
}

func (s *Store) SavePickupTime(ctx context.Context, pt *models.PickupTime) error {
	pt.Label = strings.TrimSpace(pt.Label)
	if pt.Label == "" {
		return apperr.Invalid("label", "pickup time label is required")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if pt.ID != 0 {
		var existing models.PickupTime
		if err := db.First(&existing, pt.ID).Error; err != nil {
			return fmt.Errorf("pickup time %d: %w", pt.ID, apperr.FromStorage(err))
		}
	}
	if err := db.Save(pt).Error; err != nil {
		return apperr.FromStorage(err)
	}
	return nil
}

func (s *Store) DeletePickupTime(ctx context.Context, id uint) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Delete(&models.PickupTime{}, id)
	if res.Error != nil {
		return apperr.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pickup time %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// requireLive rejects ids that do not name a non-deleted row of model.
func requireLive(tx *gorm.DB, model any, ids []uint, field, message string) error {
	ids = dedup(ids)
	if len(ids) == 0 {
		return nil
	}
	var n int64
	err := tx.Model(model).Where("id IN ? AND is_deleted = ?", ids, false).Count(&n).Error
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return apperr.Invalid(field, message)
	}
	return nil
}

// relink makes ownerColumn=ownerID linked to exactly otherIDs. Links that
// drop out are soft deleted, returning ones are revived.
func relink(tx *gorm.DB, ownerColumn string, ownerID uint, otherColumn string, otherIDs []uint) error {
	err := tx.Model(&models.MenuItemCategory{}).
		Where(ownerColumn+" = ?", ownerID).
		Update("is_deleted", true).Error
	if err != nil {
		return err
	}

	for _, otherID := range dedup(otherIDs) {
		var link models.MenuItemCategory
		err := tx.Where(ownerColumn+" = ? AND "+otherColumn+" = ?", ownerID, otherID).First(&link).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			link = models.MenuItemCategory{}
			if ownerColumn == "menu_item_id" {
				link.MenuItemID, link.MenuCategoryID = ownerID, otherID
			} else {
				link.MenuItemID, link.MenuCategoryID = otherID, ownerID
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&link).Update("is_deleted", false).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func dedup(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
