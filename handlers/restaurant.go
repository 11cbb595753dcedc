package handlers

import (
	"net/http"
	"time"

	"pickup-kitchen/middleware"
	"pickup-kitchen/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ── Category Management ──────────────────────────────────────────────────────

type SaveCategoryRequest struct {
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	IsActive     *bool     `json:"is_active"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	EndDate      time.Time `json:"end_date" binding:"required"`
	ItemIDs      []uint    `json:"item_ids"`
}

// ListOwnerCategories returns every live category, sentinel included
func (h *Handler) ListOwnerCategories(c *gin.Context) {
	categories, err := h.catalog.ListVisibleCategories(c.Request.Context(), false)
	if err != nil {
		h.respondError(c, "list_owner_categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

// CreateCategory adds a time-bound menu category for the owner's restaurant
func (h *Handler) CreateCategory(c *gin.Context) {
	h.saveCategory(c, 0)
}

// UpdateCategory replaces a category's details and its item links
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.saveCategory(c, id)
}

func (h *Handler) saveCategory(c *gin.Context, id uint) {
	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	restaurantID, err := h.orders.RestaurantForOwner(ctx, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, "save_category", err)
		return
	}

	category := models.MenuCategory{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     req.IsActive == nil || *req.IsActive,
		RestaurantID: restaurantID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
	if err := h.catalog.SaveCategory(ctx, &category, req.ItemIDs); err != nil {
		h.respondError(c, "save_category", err)
		return
	}

	status, msg := http.StatusCreated, "Category created"
	if id != 0 {
		status, msg = http.StatusOK, "Category updated"
	}
	c.JSON(status, gin.H{"message": msg, "category": category})
}

// DeleteCategory soft deletes a category and hides it from customers
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete_category", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type SaveMenuItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsVeg       bool            `json:"is_veg"`
	IsAvailable *bool           `json:"is_available"`
	ImageURL    string          `json:"image_url"`
	FoodTypeID  uint            `json:"food_type_id" binding:"required"`
	QuantityIDs []uint          `json:"quantity_ids"`
	CategoryIDs []uint          `json:"category_ids"`
}

// ListMenuItems returns the full menu, unavailable items included
func (h *Handler) ListMenuItems(c *gin.Context) {
	items, err := h.catalog.ListAllItems(c.Request.Context())
	if err != nil {
		h.respondError(c, "list_menu_items", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// AddMenuItem adds a new item to the menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	h.saveMenuItem(c, 0)
}

// UpdateMenuItem updates a menu item and its quantity and category links
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	h.saveMenuItem(c, id)
}

func (h *Handler) saveMenuItem(c *gin.Context, id uint) {
	var req SaveMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item := models.MenuItem{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsVeg:       req.IsVeg,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
		ImageURL:    req.ImageURL,
		FoodTypeID:  req.FoodTypeID,
	}
	if err := h.catalog.SaveMenuItem(c.Request.Context(), &item, req.QuantityIDs, req.CategoryIDs); err != nil {
		h.respondError(c, "save_menu_item", err)
		return
	}

	status, msg := http.StatusCreated, "Menu item added"
	if id != 0 {
		status, msg = http.StatusOK, "Menu item updated"
	}
	c.JSON(status, gin.H{"message": msg, "item": item})
}

// DeleteMenuItem removes a menu item
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteMenuItem(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete_menu_item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}

// ── Pickup Times ─────────────────────────────────────────────────────────────

type SavePickupTimeRequest struct {
	Label    string `json:"label" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) ListAllPickupTimes(c *gin.Context) {
	slots, err := h.catalog.ListPickupTimes(c.Request.Context(), false)
	if err != nil {
		h.respondError(c, "list_all_pickup_times", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(slots), "pickup_times": slots})
}

func (h *Handler) CreatePickupTime(c *gin.Context) {
	h.savePickupTime(c, 0)
}

func (h *Handler) UpdatePickupTime(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.savePickupTime(c, id)
}

func (h *Handler) savePickupTime(c *gin.Context, id uint) {
	var req SavePickupTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pt := models.PickupTime{ID: id, Label: req.Label, IsActive: req.IsActive == nil || *req.IsActive}
	if err := h.catalog.SavePickupTime(c.Request.Context(), &pt); err != nil {
		h.respondError(c, "save_pickup_time", err)
		return
	}
	status := http.StatusCreated
	if id != 0 {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"message": "Pickup time saved", "pickup_time": pt})
}

func (h *Handler) DeletePickupTime(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeletePickupTime(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete_pickup_time", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pickup time deleted"})
}

// ── Vocabularies ─────────────────────────────────────────────────────────────

// GetMenuOptions returns the food types and size vocabularies for the item form
func (h *Handler) GetMenuOptions(c *gin.Context) {
	ctx := c.Request.Context()
	foodTypes, err := h.catalog.ListFoodTypes(ctx)
	if err != nil {
		h.respondError(c, "get_menu_options", err)
		return
	}
	quantities, err := h.catalog.ListQuantities(ctx)
	if err != nil {
		h.respondError(c, "get_menu_options", err)
		return
	}
	subQuantities, err := h.catalog.ListSubQuantities(ctx)
	if err != nil {
		h.respondError(c, "get_menu_options", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"food_types":     foodTypes,
		"quantities":     quantities,
		"sub_quantities": subQuantities,
	})
}
