package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pickup-kitchen/apperr"
	"pickup-kitchen/models"

	"gorm.io/gorm"
)

var terminalStatuses = []models.OrderStatus{models.StatusDelivered, models.StatusCancelled}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_line_items.id") }).
		Preload("Items.MenuItem")
}

// byCategoryWindow orders by the end date of the category the order was
// placed from, soonest first.
func byCategoryWindow(db *gorm.DB) *gorm.DB {
	return db.
		Joins("LEFT JOIN menu_categories ON menu_categories.id = orders.category_id").
		Order("menu_categories.end_date ASC").
		Order("orders.id ASC")
}

// RestaurantForOwner maps an owner to their restaurant. The deployment is
// single tenant, so an owner without a linked restaurant gets the
// configured one.
func (s *Service) RestaurantForOwner(ctx context.Context, ownerID uint) (uint, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var restaurant models.Restaurant
	err := db.Where("owner_id = ?", ownerID).First(&restaurant).Error
	switch {
	case err == nil:
		return restaurant.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.restaurantID, nil
	default:
		return 0, apperr.FromStorage(err)
	}
}

// ListActiveOrders returns orders that have not reached a terminal status.
func (s *Service) ListActiveOrders(ctx context.Context, ownerID uint) ([]models.Order, error) {
	restaurantID, err := s.RestaurantForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var orders []models.Order
	err = byCategoryWindow(preloadItems(db)).
		Where("orders.restaurant_id = ? AND orders.status_id NOT IN ?", restaurantID, terminalStatuses).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return orders, nil
}

// ListHistoricalOrders returns finished orders, most recently completed
// first. At equal completion time Cancelled sorts before Delivered.
func (s *Service) ListHistoricalOrders(ctx context.Context, ownerID uint) ([]models.Order, error) {
	restaurantID, err := s.RestaurantForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var orders []models.Order
	err = preloadItems(db).
		Where("restaurant_id = ? AND status_id IN ? AND completed_at < ?", restaurantID, terminalStatuses, s.clock()).
		Order("completed_at DESC").
		Order("status_id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return orders, nil
}

// ListOrdersForContact is the guest lookup: every field of the contact
// snapshot must match.
func (s *Service) ListOrdersForContact(ctx context.Context, contact Contact) ([]models.Order, error) {
	contact = contact.normalized()
	if err := validateContact(s.validate, contact); err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var orders []models.Order
	err := byCategoryWindow(preloadItems(db)).
		Where("orders.first_name = ? AND orders.last_name = ? AND orders.phone = ? AND orders.email = ?",
			contact.FirstName, contact.LastName, contact.Phone, contact.Email).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return orders, nil
}

func (s *Service) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Invalid("code", "order code is required")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var order models.Order
	err := preloadItems(db).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("order_status_histories.id") }).
		Where("code = ?", code).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, code)
	}
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var order models.Order
	err := preloadItems(db).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return &order, nil
}

// ListStatuses returns the status lookup rows for the owner dropdown.
func (s *Service) ListStatuses(ctx context.Context) ([]models.OrderStatusMaster, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var statuses []models.OrderStatusMaster
	if err := db.Where("is_active = ?", true).Order("id").Find(&statuses).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return statuses, nil
}
