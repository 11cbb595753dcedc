package handlers

import (
	"net/http"

	"pickup-kitchen/middleware"
	"pickup-kitchen/models"
	"pickup-kitchen/orders"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
)

// AdminListOwners returns restaurant owners; ?pending=true limits it to
// accounts still waiting for verification
func (h *Handler) AdminListOwners(c *gin.Context) {
	owners, err := h.accounts.ListOwners(c.Request.Context(), c.Query("pending") == "true")
	if err != nil {
		h.respondError(c, "admin_list_owners", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(owners), "owners": owners})
}

// AdminVerifyOwner approves an owner account
func (h *Handler) AdminVerifyOwner(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	owner, err := h.accounts.VerifyOwner(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "admin_verify_owner", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Owner verified", "owner": userSummary(owner)})
}

// AdminGetOrder returns any order with full detail (admin only)
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "admin_get_order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// AdminForceOrderStatus lets admin override an order's state (emergency use).
// The configured transition policy still applies.
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
		Reason string             `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := middleware.GetUserID(c)
	order, err := h.orders.UpdateStatus(c.Request.Context(), orders.StatusChange{
		OrderID:   id,
		Status:    req.Status,
		ChangedBy: &adminID,
		Note:      "[ADMIN OVERRIDE] " + req.Reason,
	})
	if statemachine.IsTransitionError(err) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid state transition", "reason": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, "admin_force_order_status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Order status force-updated by admin",
		"order_id":   order.ID,
		"new_status": order.Status,
	})
}
