package handlers

import (
	"errors"
	"net/http"
	"strings"

	"pickup-kitchen/cart"
	"pickup-kitchen/middleware"
	"pickup-kitchen/models"
	"pickup-kitchen/orders"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// ── Cart ─────────────────────────────────────────────────────────────────────

type AddToCartRequest struct {
	MenuItemID  uint   `json:"menu_item_id" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	SubQuantity int    `json:"sub_quantity"`
	CategoryID  uint   `json:"category_id" binding:"required"`
}

// GetCart returns the caller's cart with its running total
func (h *Handler) GetCart(c *gin.Context) {
	ct, err := h.carts.Get(c.Request.Context(), middleware.GetCartSession(c))
	if err != nil {
		h.respondError(c, "get_cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": ct, "count": len(ct.Lines), "total": ct.Total().StringFixed(2)})
}

// AddToCart adds an item or replaces the line already held for it
func (h *Handler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ct, err := h.carts.Add(c.Request.Context(), middleware.GetCartSession(c),
		req.MenuItemID, req.Quantity, req.SubQuantity, req.CategoryID)
	if err != nil {
		h.respondError(c, "add_to_cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated", "cart": ct, "total": ct.Total().StringFixed(2)})
}

// RemoveFromCart drops an item from the cart
func (h *Handler) RemoveFromCart(c *gin.Context) {
	id, ok := parseID(c, "itemId")
	if !ok {
		return
	}
	ct, err := h.carts.Remove(c.Request.Context(), middleware.GetCartSession(c), id)
	if err != nil {
		h.respondError(c, "remove_from_cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed", "cart": ct, "total": ct.Total().StringFixed(2)})
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.GetCartSession(c)); err != nil {
		h.respondError(c, "clear_cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ── Checkout ─────────────────────────────────────────────────────────────────

type CheckoutRequest struct {
	Contact    orders.Contact `json:"contact"`
	PickupTime string         `json:"pickup_time"`
	Comments   string         `json:"comments"`
}

// Checkout turns the caller's cart into an order. Guests may check out;
// a signed-in customer is recorded on the order. The cart is only cleared
// once the order is stored.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var order *models.Order
	err := h.carts.Checkout(ctx, middleware.GetCartSession(c), func(lines []cart.LineItem, categoryID uint) error {
		placed, err := h.orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
			Lines:      lines,
			CategoryID: categoryID,
			PickupTime: req.PickupTime,
			Contact:    req.Contact,
			Comments:   req.Comments,
			CustomerID: middleware.OptionalUserID(c),
		})
		if err != nil {
			return err
		}
		order = placed
		return nil
	})
	switch {
	case order != nil && errors.Is(err, cart.ErrClearAfterCheckout):
		// the order stands; a stale cart is only an inconvenience
		h.log.Error("checkout", "failed to clear cart after placement", err)
	case err != nil:
		h.respondError(c, "checkout", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
		"code":    order.Code,
	})
}

// ── Order lookup ─────────────────────────────────────────────────────────────

// GetMyOrders finds a guest's orders by the contact details given at checkout
func (h *Handler) GetMyOrders(c *gin.Context) {
	var contact orders.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.orders.ListOrdersForContact(c.Request.Context(), contact)
	if err != nil {
		h.respondError(c, "get_my_orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "orders": list})
}

// GetOrderByCode returns an order with its history. The code is the
// capability: anyone holding it may look the order up.
func (h *Handler) GetOrderByCode(c *gin.Context) {
	order, err := h.orders.GetOrderByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, "get_order_by_code", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrderQR renders a QR code pointing at the order's lookup URL
func (h *Handler) GetOrderQR(c *gin.Context) {
	order, err := h.orders.GetOrderByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, "get_order_qr", err)
		return
	}
	png, err := qrcode.Encode(h.orderURL(order.Code), qrcode.Medium, 256)
	if err != nil {
		h.respondError(c, "get_order_qr", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) orderURL(code string) string {
	return strings.TrimRight(h.baseURL, "/") + "/api/orders/" + code
}
