package handlers

import (
	"net/http"

	"pickup-kitchen/middleware"
	"pickup-kitchen/models"
	"pickup-kitchen/orders"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
)

func orderSummary(list []models.Order) map[string]int {
	summary := map[string]int{}
	for _, o := range list {
		summary[o.Status.String()]++
	}
	return summary
}

// GetActiveOrders returns the restaurant's open orders, soonest category end first
func (h *Handler) GetActiveOrders(c *gin.Context) {
	list, err := h.orders.ListActiveOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, "get_active_orders", err)
		return
	}
	// Group counts by status for the dashboard
	c.JSON(http.StatusOK, gin.H{
		"order_summary": orderSummary(list),
		"count":         len(list),
		"orders":        list,
	})
}

// GetOrderHistory returns delivered and cancelled orders
func (h *Handler) GetOrderHistory(c *gin.Context) {
	list, err := h.orders.ListHistoricalOrders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, "get_order_history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_summary": orderSummary(list),
		"count":         len(list),
		"orders":        list,
	})
}

// GetRestaurantOrder returns one of the restaurant's orders
func (h *Handler) GetRestaurantOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus handles the restaurant's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID := middleware.GetUserID(c)
	updated, err := h.orders.UpdateStatus(c.Request.Context(), orderStatusChange(order.ID, req, ownerID))
	if statemachine.IsTransitionError(err) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    order.Status,
			"requested":         req.Status,
			"reason":            err.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		})
		return
	}
	if err != nil {
		h.respondError(c, "update_order_status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        updated.ID,
		"previous_status": order.Status,
		"current_status":  updated.Status,
		"completed_at":    updated.CompletedAt,
	})
}

func orderStatusChange(orderID uint, req UpdateOrderStatusRequest, ownerID uint) orders.StatusChange {
	return orders.StatusChange{
		OrderID:   orderID,
		Status:    req.Status,
		ChangedBy: &ownerID,
		Note:      req.Note,
	}
}

// GetOrderStatuses returns the status vocabulary for the dashboard
func (h *Handler) GetOrderStatuses(c *gin.Context) {
	statuses, err := h.orders.ListStatuses(c.Request.Context())
	if err != nil {
		h.respondError(c, "get_order_statuses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(statuses), "statuses": statuses})
}

// ownedOrder loads the order named in the path and checks it belongs to
// the caller's restaurant.
func (h *Handler) ownedOrder(c *gin.Context) (*models.Order, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()
	restaurantID, err := h.orders.RestaurantForOwner(ctx, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, "load_order", err)
		return nil, false
	}
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		h.respondError(c, "load_order", err)
		return nil, false
	}
	if order.RestaurantID != restaurantID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to your restaurant"})
		return nil, false
	}
	return order, true
}
