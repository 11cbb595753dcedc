package handlers

import (
	"net/http"

	"pickup-kitchen/models"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
)

// ListCategories returns the categories customers can order from (public)
func (h *Handler) ListCategories(c *gin.Context) {
	// the sentinel stays out of the picker unless asked for
	categories, err := h.catalog.ListVisibleCategories(c.Request.Context(), c.Query("include_everyday") != "true")
	if err != nil {
		h.respondError(c, "list_categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

// GetCategoryMenu returns a category with its items plus the always-available ones
func (h *Handler) GetCategoryMenu(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	category, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		h.respondError(c, "get_category_menu", err)
		return
	}
	items, err := h.catalog.ListItemsForCategory(ctx, id)
	if err != nil {
		h.respondError(c, "get_category_menu", err)
		return
	}

	// Novelty: veg-only filter
	if c.Query("is_veg") == "true" {
		veg := items[:0]
		for _, it := range items {
			if it.IsVeg {
				veg = append(veg, it)
			}
		}
		items = veg
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"count":    len(items),
		"menu":     items,
	})
}

// GetMenuItem returns a single available item
func (h *Handler) GetMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.GetItemByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get_menu_item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// ListPickupTimes returns the active pickup slots for checkout
func (h *Handler) ListPickupTimes(c *gin.Context) {
	slots, err := h.catalog.ListPickupTimes(c.Request.Context(), true)
	if err != nil {
		h.respondError(c, "list_pickup_times", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(slots), "pickup_times": slots})
}

// GetStateMachineInfo returns the order lifecycle for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	mode := "lenient"
	if h.strict {
		mode = "strict"
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"statuses":        models.AllStatuses(),
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"mode":            mode,
		"description":     "Pickup Order Lifecycle State Machine",
	})
}
