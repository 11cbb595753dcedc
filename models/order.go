package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a pickup order
type OrderStatus int

const (
	StatusPlaced OrderStatus = iota + 1
	StatusConfirmed
	StatusPreparing
	StatusOutForDelivery
	StatusDelivered
	StatusCancelled
)

var statusNames = map[OrderStatus]string{
	StatusPlaced:         "Placed",
	StatusConfirmed:      "Confirmed",
	StatusPreparing:      "Preparing",
	StatusOutForDelivery: "OutForDelivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []OrderStatus {
	return []OrderStatus{StatusPlaced, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled}
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(s)) + ")"
}

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal is true for Delivered and Cancelled.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ParseOrderStatus accepts the status name (case-insensitive) or its number.
func ParseOrderStatus(v string) (OrderStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if s := OrderStatus(n); s.Valid() {
			return s, nil
		}
		return 0, fmt.Errorf("unknown order status %d", n)
	}
	for s, name := range statusNames {
		if strings.EqualFold(name, v) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var parsed OrderStatus
	var err error
	switch v := raw.(type) {
	case string:
		parsed, err = ParseOrderStatus(v)
	case float64:
		parsed, err = ParseOrderStatus(strconv.Itoa(int(v)))
	default:
		err = fmt.Errorf("order status must be a string or number")
	}
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// OrderStatusMaster is the seeded lookup table shown to owners.
type OrderStatusMaster struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type Order struct {
	ID            uint                 `json:"id" gorm:"primaryKey"`
	CustomerID    *uint                `json:"customer_id"` // nil for guest checkout
	RestaurantID  uint                 `json:"restaurant_id" gorm:"not null;index"`
	OrderDate     time.Time            `json:"order_date"`
	Status        OrderStatus          `json:"status" gorm:"column:status_id;not null;index"`
	Subtotal      decimal.Decimal      `json:"subtotal" gorm:"type:decimal(8,2);not null"`
	Tax           decimal.Decimal      `json:"tax" gorm:"type:decimal(8,2);not null"`
	DeliveryFee   decimal.Decimal      `json:"delivery_fee" gorm:"type:decimal(8,2);not null"`
	Discount      decimal.Decimal      `json:"discount" gorm:"type:decimal(8,2);not null"`
	Total         decimal.Decimal      `json:"total" gorm:"type:decimal(8,2);not null"`
	PickupTime    string               `json:"pickup_time"`
	CategoryID    uint                 `json:"category_id" gorm:"index"`
	CategoryName  string               `json:"category_name"`
	FirstName     string               `json:"first_name" gorm:"index:idx_orders_contact"`
	LastName      string               `json:"last_name" gorm:"index:idx_orders_contact"`
	Phone         string               `json:"phone" gorm:"index:idx_orders_contact"`
	Email         string               `json:"email" gorm:"index:idx_orders_contact"`
	Code          string               `json:"code" gorm:"uniqueIndex;size:64;not null"`
	Comments      string               `json:"comments"`
	CompletedAt   *time.Time           `json:"completed_at"`
	Items         []OrderLineItem      `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// OrderLineItem freezes the price of one cart line at placement time.
type OrderLineItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	MenuItemID  uint            `json:"menu_item_id" gorm:"not null"`
	MenuItem    *MenuItem       `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	ItemName    string          `json:"item_name"`
	Quantity    string          `json:"quantity" gorm:"not null"`
	SubQuantity int             `json:"sub_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(8,2);not null"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:decimal(8,2);not null"`
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  *uint       `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
