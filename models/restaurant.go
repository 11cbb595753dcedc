package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OwnerID     *uint     `json:"owner_id" gorm:"index"`
	Owner       *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string    `json:"name" gorm:"not null"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	IsOpen      bool      `json:"is_open"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MenuCategory is a time-bound menu schedule ("Weekend Specials", "Lunch").
// Customers only see it while IsActive and EndDate is still ahead.
type MenuCategory struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active" gorm:"index"`
	RestaurantID uint      `json:"restaurant_id" gorm:"not null"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date" gorm:"index"`
	IsDeleted    bool      `json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	Name          string             `json:"name" gorm:"not null"`
	Description   string             `json:"description"`
	Price         decimal.Decimal    `json:"price" gorm:"type:decimal(8,2);not null"`
	IsVeg         bool               `json:"is_veg"`
	IsAvailable   bool               `json:"is_available" gorm:"index"`
	ImageURL      string             `json:"image_url"`
	FoodTypeID    uint               `json:"food_type_id"`
	FoodType      *FoodType          `json:"food_type,omitempty" gorm:"foreignKey:FoodTypeID"`
	IsDeleted     bool               `json:"is_deleted"`
	Quantities    []Quantity         `json:"quantities,omitempty" gorm:"many2many:menu_item_quantities"`
	CategoryLinks []MenuItemCategory `json:"-" gorm:"foreignKey:MenuItemID"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// MenuItemCategory links an item to a category; the link carries its own
// soft-delete flag independent of both ends.
type MenuItemCategory struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	MenuItemID     uint `json:"menu_item_id" gorm:"index;not null"`
	MenuCategoryID uint `json:"menu_category_id" gorm:"index;not null"`
	IsDeleted      bool `json:"is_deleted"`
}

type FoodType struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	IsDeleted   bool   `json:"is_deleted"`
}

// Quantity is a selectable size label: "Full", "Half", "Quarter" or a count.
type Quantity struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Size string `json:"size" gorm:"uniqueIndex;not null"`
}

// SubQuantity is the multiplier offered for Half/Quarter portions.
type SubQuantity struct {
	ID    uint `json:"id" gorm:"primaryKey"`
	Value int  `json:"value" gorm:"uniqueIndex;not null"`
}

type PickupTime struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Label    string `json:"label" gorm:"not null"`
	IsActive bool   `json:"is_active"`
}
