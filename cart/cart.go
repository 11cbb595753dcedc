// Package cart keeps the per-session list of items a customer is about to
// order.
package cart

import (
	"fmt"

	"pickup-kitchen/apperr"
	"pickup-kitchen/models"
	"pickup-kitchen/pricing"

	"github.com/shopspring/decimal"
)

var ErrItemRequired = fmt.Errorf("%w: menu item is required", apperr.ErrInvalidInput)

// LineItem is one menu item in the cart with its price already worked out.
// The item fields are a snapshot taken when the line was last written.
type LineItem struct {
	MenuItemID  uint            `json:"menu_item_id"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url,omitempty"`
	IsVeg       bool            `json:"is_veg"`
	Price       decimal.Decimal `json:"price"`
	Quantity    string          `json:"quantity"`
	SubQuantity int             `json:"sub_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Cart holds at most one line per menu item.
type Cart struct {
	Lines      []LineItem `json:"lines"`
	CategoryID uint       `json:"category_id"`
}

// AddOrUpdate prices the selection and either replaces the existing line
// for the item or appends a new one. The cart's category is overwritten.
func (c *Cart) AddOrUpdate(item *models.MenuItem, quantity string, subQuantity int, categoryID uint) error {
	if item == nil || item.ID == 0 {
		return ErrItemRequired
	}
	unit, total, err := pricing.Price(item.Price, quantity, subQuantity)
	if err != nil {
		return err
	}

	line := LineItem{
		MenuItemID:  item.ID,
		Name:        item.Name,
		ImageURL:    item.ImageURL,
		IsVeg:       item.IsVeg,
		Price:       item.Price,
		Quantity:    quantity,
		SubQuantity: subQuantity,
		UnitPrice:   unit,
		TotalPrice:  total,
	}

	c.CategoryID = categoryID
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == item.ID {
			c.Lines[i] = line
			return nil
		}
	}
	c.Lines = append(c.Lines, line)
	return nil
}

// Remove drops every line for the item. Removing an absent item is a no-op.
func (c *Cart) Remove(menuItemID uint) {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.MenuItemID != menuItemID {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

// Snapshot returns a copy safe to hand to order placement.
func (c *Cart) Snapshot() ([]LineItem, uint) {
	lines := make([]LineItem, len(c.Lines))
	copy(lines, c.Lines)
	return lines, c.CategoryID
}

func (c *Cart) Clear() {
	c.Lines = nil
	c.CategoryID = 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total is the sum of unrounded line totals.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.TotalPrice)
	}
	return sum
}
