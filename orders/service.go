// Package orders turns carts into persisted orders and moves them through
// their status lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pickup-kitchen/apperr"
	"pickup-kitchen/cart"
	"pickup-kitchen/events"
	"pickup-kitchen/logger"
	"pickup-kitchen/metrics"
	"pickup-kitchen/models"
	"pickup-kitchen/notify"
	"pickup-kitchen/pricing"
	"pickup-kitchen/statemachine"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptyOrder      = fmt.Errorf("%w: order has no items", apperr.ErrInvalidInput)
	ErrInvalidCategory = fmt.Errorf("%w: category is not available", apperr.ErrInvalidInput)
	ErrInvalidLine     = fmt.Errorf("%w: invalid order line", apperr.ErrInvalidInput)
	ErrOrderNotFound   = fmt.Errorf("order %w", apperr.ErrNotFound)
)

// taxRate is a fixed business rule, not per restaurant.
var taxRate = decimal.RequireFromString("0.06")

// Publisher emits order lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, evt events.OrderEvent) error
}

// Notifier sends an already rendered email.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

var (
	_ Publisher = (*events.KafkaPublisher)(nil)
	_ Notifier  = (*notify.AMQPNotifier)(nil)
	_ Notifier  = (*notify.LogNotifier)(nil)
)

type Options struct {
	RestaurantID  uint
	Policy        statemachine.Policy
	Timeout       time.Duration
	NotifyTimeout time.Duration
	PublicBaseURL string
	Publisher     Publisher
	Notifier      Notifier
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
	NewCode       func() string
}

type Service struct {
	db            *gorm.DB
	restaurantID  uint
	policy        statemachine.Policy
	timeout       time.Duration
	notifyTimeout time.Duration
	baseURL       string
	publisher     Publisher
	notifier      Notifier
	log           *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
	newCode       func() string
	validate      *validator.Validate
}

func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:            db,
		restaurantID:  opts.RestaurantID,
		policy:        opts.Policy,
		timeout:       opts.Timeout,
		notifyTimeout: opts.NotifyTimeout,
		baseURL:       opts.PublicBaseURL,
		publisher:     opts.Publisher,
		notifier:      opts.Notifier,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		now:           opts.Now,
		newCode:       opts.NewCode,
		validate:      newValidator(),
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 2 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = uuid.NewString
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

func (s *Service) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

type PlaceOrderRequest struct {
	Lines      []cart.LineItem
	CategoryID uint
	PickupTime string
	Contact    Contact
	Comments   string
	CustomerID *uint // nil for guest checkout
}

type totals struct {
	subtotal, tax, deliveryFee, discount, total decimal.Decimal
	lines                                       []models.OrderLineItem
}

// computeTotals freezes line prices at two digits and derives the header
// amounts from the rounded lines.
func computeTotals(lines []cart.LineItem) (totals, error) {
	t := totals{
		subtotal:    decimal.Zero,
		deliveryFee: decimal.Zero,
		discount:    decimal.Zero,
		lines:       make([]models.OrderLineItem, 0, len(lines)),
	}
	for _, l := range lines {
		if l.MenuItemID == 0 || l.TotalPrice.IsNegative() || l.UnitPrice.IsNegative() {
			return totals{}, fmt.Errorf("%w: menu item %d", ErrInvalidLine, l.MenuItemID)
		}
		lineTotal := pricing.RoundMoney(l.TotalPrice)
		t.subtotal = t.subtotal.Add(lineTotal)
		t.lines = append(t.lines, models.OrderLineItem{
			MenuItemID:  l.MenuItemID,
			ItemName:    l.Name,
			Quantity:    l.Quantity,
			SubQuantity: l.SubQuantity,
			UnitPrice:   pricing.RoundMoney(l.UnitPrice),
			TotalPrice:  lineTotal,
		})
	}
	t.tax = pricing.RoundMoney(t.subtotal.Mul(taxRate))
	t.total = t.subtotal.Add(t.tax).Sub(t.discount).Add(t.deliveryFee)
	return t, nil
}

// PlaceOrder persists the order header, its lines and the first history
// entry in one transaction. A collision on the generated code is retried
// once with a fresh code.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		s.metrics.PlacementFailed("empty_order")
		return nil, ErrEmptyOrder
	}
	contact := req.Contact.normalized()
	if err := validateContact(s.validate, contact); err != nil {
		s.metrics.PlacementFailed("invalid_contact")
		return nil, err
	}
	t, err := computeTotals(req.Lines)
	if err != nil {
		s.metrics.PlacementFailed("invalid_line")
		return nil, err
	}

	var order *models.Order
	for attempt := 1; ; attempt++ {
		order, err = s.insertOrder(ctx, req, contact, t, s.newCode())
		if err == nil || !apperr.IsDuplicate(err) || attempt == 2 {
			break
		}
		s.log.Warn("order_code_collision", "regenerating order code", slog.Int("attempt", attempt))
	}
	if err != nil {
		reason := "storage"
		if errors.Is(err, apperr.ErrInvalidInput) {
			reason = "invalid_category"
		}
		s.metrics.PlacementFailed(reason)
		return nil, apperr.FromStorage(err)
	}

	total, _ := order.Total.Float64()
	s.metrics.OrderPlaced(total)
	s.log.Info("order_placed", "order placed",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.String("code", order.Code),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("lines", len(order.Items)))

	s.publish(ctx, events.OrderEvent{
		Type:         events.TypeOrderPlaced,
		OrderID:      order.ID,
		Code:         order.Code,
		RestaurantID: order.RestaurantID,
		Status:       order.Status.String(),
		Total:        order.Total.StringFixed(2),
		OccurredAt:   s.clock(),
	})
	s.sendConfirmation(ctx, order)
	return order, nil
}

func (s *Service) insertOrder(ctx context.Context, req PlaceOrderRequest, contact Contact, t totals, code string) (*models.Order, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	now := s.clock()
	order := &models.Order{
		CustomerID:   req.CustomerID,
		RestaurantID: s.restaurantID,
		OrderDate:    now,
		Status:       models.StatusPlaced,
		Subtotal:     t.subtotal,
		Tax:          t.tax,
		DeliveryFee:  t.deliveryFee,
		Discount:     t.discount,
		Total:        t.total,
		PickupTime:   strings.TrimSpace(req.PickupTime),
		CategoryID:   req.CategoryID,
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		Phone:        contact.Phone,
		Email:        contact.Email,
		Code:         code,
		Comments:     strings.TrimSpace(req.Comments),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var category models.MenuCategory
		err := tx.Where("is_active = ? AND is_deleted = ? AND end_date > ?", true, false, now).
			First(&category, req.CategoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrInvalidCategory, req.CategoryID)
		}
		if err != nil {
			return err
		}
		order.CategoryName = category.Name

		if err := tx.Omit("Items", "StatusHistory").Create(order).Error; err != nil {
			return err
		}

		items := make([]models.OrderLineItem, len(t.lines))
		for i, line := range t.lines {
			line.OrderID = order.ID
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to insert line %d: %w", i+1, err)
			}
			items[i] = line
		}
		order.Items = items

		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPlaced,
			ChangedBy: req.CustomerID,
			Note:      "order placed",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		order.StatusHistory = []models.OrderStatusHistory{history}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type StatusChange struct {
	OrderID   uint
	Status    models.OrderStatus
	ChangedBy *uint
	Note      string
}

// UpdateStatus writes the new status, stamping the completion time when the
// order reaches Delivered or Cancelled and clearing it otherwise.
func (s *Service) UpdateStatus(ctx context.Context, change StatusChange) (*models.Order, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var order models.Order
	var previous models.OrderStatus
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, change.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrOrderNotFound, change.OrderID)
			}
			return err
		}
		if err := s.policy.Check(order.Status, change.Status); err != nil {
			return err
		}

		previous = order.Status
		var completedAt *time.Time
		if change.Status.IsTerminal() {
			now := s.clock()
			completedAt = &now
		}
		err := tx.Model(&order).Updates(map[string]any{
			"status_id":    change.Status,
			"completed_at": completedAt,
		}).Error
		if err != nil {
			return err
		}
		order.Status = change.Status
		order.CompletedAt = completedAt

		return tx.Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: previous,
			ToStatus:   change.Status,
			ChangedBy:  change.ChangedBy,
			Note:       change.Note,
		}).Error
	})
	if err != nil {
		return nil, apperr.FromStorage(err)
	}

	s.metrics.StatusChanged(order.Status.String())
	s.log.Info("order_status_changed", "order status updated",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.String("from", previous.String()),
		slog.String("to", order.Status.String()))

	s.publish(ctx, events.OrderEvent{
		Type:           events.TypeOrderStatusChanged,
		OrderID:        order.ID,
		Code:           order.Code,
		RestaurantID:   order.RestaurantID,
		Status:         order.Status.String(),
		PreviousStatus: previous.String(),
		OccurredAt:     s.clock(),
	})
	return &order, nil
}

// publish and sendConfirmation are best effort: the order is already
// committed, so failures are logged and swallowed.
func (s *Service) publish(ctx context.Context, evt events.OrderEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Error("event_publish_failed", "could not publish order event", err,
			slog.String("type", evt.Type), slog.String("code", evt.Code))
	}
}

func (s *Service) sendConfirmation(ctx context.Context, order *models.Order) {
	if s.notifier == nil || order.Email == "" {
		return
	}
	subject, body, err := notify.OrderPlaced(order, s.baseURL)
	if err != nil {
		s.log.Error("email_render_failed", "could not render confirmation", err, slog.String("code", order.Code))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(ctx, order.Email, subject, body); err != nil {
		s.log.Error("email_send_failed", "could not send confirmation", err, slog.String("code", order.Code))
	}
}
