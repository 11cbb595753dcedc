package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader   = "X-Request-ID"
	CartSessionCookie = "cart_session"
)

// RequestID tags every request, reusing an incoming id when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// CartSession gives every browser a cart session cookie. The cart itself
// lives in the cart store under this id.
func CartSession(maxAgeSeconds int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CartSessionCookie)
		if _, perr := uuid.Parse(id); err != nil || perr != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CartSessionCookie, id, maxAgeSeconds, "/", "", secure, true)
		}
		c.Set("cartSession", id)
		c.Next()
	}
}

func GetCartSession(c *gin.Context) string {
	return c.GetString("cartSession")
}

func GetRequestID(c *gin.Context) string {
	return c.GetString("requestID")
}
