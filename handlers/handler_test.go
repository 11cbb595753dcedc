package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pickup-kitchen/accounts"
	"pickup-kitchen/apperr"
	"pickup-kitchen/cart"
	"pickup-kitchen/models"
	"pickup-kitchen/orders"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type cartsMock struct {
	mock.Mock
}

func (m *cartsMock) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	args := m.Called(ctx, sessionID)
	c, _ := args.Get(0).(*cart.Cart)
	return c, args.Error(1)
}

func (m *cartsMock) Add(ctx context.Context, sessionID string, menuItemID uint, quantity string, subQuantity int, categoryID uint) (*cart.Cart, error) {
	args := m.Called(ctx, sessionID, menuItemID, quantity, subQuantity, categoryID)
	c, _ := args.Get(0).(*cart.Cart)
	return c, args.Error(1)
}

func (m *cartsMock) Remove(ctx context.Context, sessionID string, menuItemID uint) (*cart.Cart, error) {
	args := m.Called(ctx, sessionID, menuItemID)
	c, _ := args.Get(0).(*cart.Cart)
	return c, args.Error(1)
}

func (m *cartsMock) Clear(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// Checkout feeds the stubbed cart to place and returns the stubbed clear
// error only when place succeeds.
func (m *cartsMock) Checkout(ctx context.Context, sessionID string, place func([]cart.LineItem, uint) error) error {
	args := m.Called(ctx, sessionID)
	c, _ := args.Get(0).(*cart.Cart)
	if c == nil {
		c = &cart.Cart{}
	}
	lines, categoryID := c.Snapshot()
	if err := place(lines, categoryID); err != nil {
		return err
	}
	return args.Error(1)
}

type ordersMock struct {
	mock.Mock
}

func (m *ordersMock) PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *ordersMock) UpdateStatus(ctx context.Context, change orders.StatusChange) (*models.Order, error) {
	args := m.Called(ctx, change)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *ordersMock) ListActiveOrders(ctx context.Context, ownerID uint) ([]models.Order, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Error(1)
}

func (m *ordersMock) ListHistoricalOrders(ctx context.Context, ownerID uint) ([]models.Order, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Error(1)
}

func (m *ordersMock) ListOrdersForContact(ctx context.Context, contact orders.Contact) ([]models.Order, error) {
	args := m.Called(ctx, contact)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Error(1)
}

func (m *ordersMock) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	args := m.Called(ctx, code)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *ordersMock) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *ordersMock) RestaurantForOwner(ctx context.Context, ownerID uint) (uint, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *ordersMock) ListStatuses(ctx context.Context) ([]models.OrderStatusMaster, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.OrderStatusMaster)
	return list, args.Error(1)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// withSession fakes the cart session and caller identity the middleware
// chain would normally set.
func withSession(session string, userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("cartSession", session)
		if userID != 0 {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{name: "validation", err: apperr.Invalid("email", "must be a valid email address"), wantCode: http.StatusBadRequest, wantError: "must be a valid email address"},
		{name: "invalid_input", err: orders.ErrEmptyOrder, wantCode: http.StatusBadRequest, wantError: orders.ErrEmptyOrder.Error()},
		{name: "not_found", err: orders.ErrOrderNotFound, wantCode: http.StatusNotFound, wantError: orders.ErrOrderNotFound.Error()},
		{name: "not_found_wrapped", err: fmt.Errorf("order abc: %w", orders.ErrOrderNotFound), wantCode: http.StatusNotFound, wantError: orders.ErrOrderNotFound.Error()},
		{name: "registered_conflict", err: accounts.ErrAlreadyRegistered, wantCode: http.StatusConflict, wantError: accounts.ErrAlreadyRegistered.Error()},
		{name: "driver_not_found_hidden", err: fmt.Errorf("menu item 999: %w", apperr.FromStorage(gorm.ErrRecordNotFound)), wantCode: http.StatusNotFound, wantError: "not found"},
		{name: "driver_conflict_hidden", err: apperr.FromStorage(errors.New("constraint failed: UNIQUE constraint failed: orders.code (2067)")), wantCode: http.StatusConflict, wantError: "already exists"},
		{name: "unknown_invalid_hidden", err: fmt.Errorf("%w: near \"SELEC\": syntax error", apperr.ErrInvalidInput), wantCode: http.StatusBadRequest, wantError: "invalid request"},
		{name: "storage_hidden", err: fmt.Errorf("%w: dial tcp: refused", apperr.ErrStorageUnavailable), wantCode: http.StatusServiceUnavailable, wantError: genericFailure},
		{name: "unknown_hidden", err: errors.New("boom"), wantCode: http.StatusServiceUnavailable, wantError: genericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(Deps{})
			r := gin.New()
			r.GET("/", func(c *gin.Context) { h.respondError(c, "test", tt.err) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			body := rec.Body.String()
			assert.Equal(t, tt.wantError, decode(t, rec)["error"])
			for _, driverText := range []string{"record not found", "UNIQUE", "orders.code", "syntax error"} {
				assert.NotContains(t, body, driverText)
			}
		})
	}
}

func checkoutRequest(t *testing.T) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/checkout", jsonBody(t, CheckoutRequest{
		Contact:    orders.Contact{FirstName: "Asha", LastName: "Rao", Phone: "5550001111", Email: "asha@example.com"},
		PickupTime: "12:30",
	}))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func filledCart() *cart.Cart {
	c := &cart.Cart{}
	_ = c.AddOrUpdate(&models.MenuItem{ID: 101, Name: "Paneer Tikka", Price: decimal.RequireFromString("12.50")}, "2", 0, 7)
	return c
}

func TestCheckout_ClearsCartOnSuccess(t *testing.T) {
	carts := &cartsMock{}
	carts.On("Checkout", mock.Anything, "sess-1").Return(filledCart(), nil).Once()

	ords := &ordersMock{}
	ords.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req orders.PlaceOrderRequest) bool {
		return len(req.Lines) == 1 && req.CategoryID == 7 && req.CustomerID != nil && *req.CustomerID == 42
	})).Return(&models.Order{ID: 1, Code: "abc-123", Status: models.StatusPlaced}, nil)

	h := New(Deps{Carts: carts, Orders: ords})
	r := gin.New()
	r.POST("/checkout", withSession("sess-1", 42), h.Checkout)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, checkoutRequest(t))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "abc-123", decode(t, rec)["code"])
	carts.AssertExpectations(t)
	ords.AssertExpectations(t)
}

func TestCheckout_KeepsCartOnFailure(t *testing.T) {
	carts := &cartsMock{}
	carts.On("Checkout", mock.Anything, "sess-1").Return(filledCart(), nil)

	ords := &ordersMock{}
	ords.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, orders.ErrInvalidCategory)

	h := New(Deps{Carts: carts, Orders: ords})
	r := gin.New()
	r.POST("/checkout", withSession("sess-1", 0), h.Checkout)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, checkoutRequest(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestCheckout_OrderStandsWhenClearFails(t *testing.T) {
	carts := &cartsMock{}
	carts.On("Checkout", mock.Anything, "sess-1").
		Return(filledCart(), fmt.Errorf("%w: redis down", cart.ErrClearAfterCheckout))

	ords := &ordersMock{}
	ords.On("PlaceOrder", mock.Anything, mock.Anything).Return(&models.Order{ID: 1, Code: "abc-123"}, nil)

	h := New(Deps{Carts: carts, Orders: ords})
	r := gin.New()
	r.POST("/checkout", withSession("sess-1", 0), h.Checkout)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, checkoutRequest(t))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "abc-123", decode(t, rec)["code"])
}

func TestGetOrderQR(t *testing.T) {
	ords := &ordersMock{}
	ords.On("GetOrderByCode", mock.Anything, "abc-123").Return(&models.Order{ID: 1, Code: "abc-123"}, nil)
	ords.On("GetOrderByCode", mock.Anything, "missing").Return(nil, orders.ErrOrderNotFound)

	h := New(Deps{Orders: ords, PublicBaseURL: "https://kitchen.example/"})
	assert.Equal(t, "https://kitchen.example/api/orders/abc-123", h.orderURL("abc-123"))

	r := gin.New()
	r.GET("/orders/:code/qr", h.GetOrderQR)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc-123/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/missing/qr", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	newRouter := func(ords *ordersMock) *gin.Engine {
		h := New(Deps{Orders: ords})
		r := gin.New()
		r.PUT("/orders/:id/status", withSession("", 9), h.UpdateOrderStatus)
		return r
	}
	statusRequest := func(status string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/orders/5/status",
			bytes.NewBufferString(`{"status":"`+status+`","note":"on it"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("other_restaurant", func(t *testing.T) {
		ords := &ordersMock{}
		ords.On("RestaurantForOwner", mock.Anything, uint(9)).Return(uint(1), nil)
		ords.On("GetOrder", mock.Anything, uint(5)).Return(&models.Order{ID: 5, RestaurantID: 2}, nil)

		rec := httptest.NewRecorder()
		newRouter(ords).ServeHTTP(rec, statusRequest("Confirmed"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		ords.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("records_owner", func(t *testing.T) {
		ords := &ordersMock{}
		ords.On("RestaurantForOwner", mock.Anything, uint(9)).Return(uint(1), nil)
		ords.On("GetOrder", mock.Anything, uint(5)).Return(&models.Order{ID: 5, RestaurantID: 1, Status: models.StatusPlaced}, nil)
		ords.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(ch orders.StatusChange) bool {
			return ch.OrderID == 5 && ch.Status == models.StatusConfirmed && ch.ChangedBy != nil && *ch.ChangedBy == 9 && ch.Note == "on it"
		})).Return(&models.Order{ID: 5, RestaurantID: 1, Status: models.StatusConfirmed}, nil)

		rec := httptest.NewRecorder()
		newRouter(ords).ServeHTTP(rec, statusRequest("Confirmed"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "Placed", body["previous_status"])
		assert.Equal(t, "Confirmed", body["current_status"])
		ords.AssertExpectations(t)
	})

	t.Run("rejected_transition", func(t *testing.T) {
		ords := &ordersMock{}
		ords.On("RestaurantForOwner", mock.Anything, uint(9)).Return(uint(1), nil)
		ords.On("GetOrder", mock.Anything, uint(5)).Return(&models.Order{ID: 5, RestaurantID: 1, Status: models.StatusDelivered}, nil)
		ords.On("UpdateStatus", mock.Anything, mock.Anything).
			Return(nil, statemachine.CanTransition(models.StatusDelivered, models.StatusPlaced))

		rec := httptest.NewRecorder()
		newRouter(ords).ServeHTTP(rec, statusRequest("Placed"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestGetCart_StorageDown(t *testing.T) {
	carts := &cartsMock{}
	carts.On("Get", mock.Anything, "sess-1").Return(nil, fmt.Errorf("%w: redis down", apperr.ErrStorageUnavailable))

	h := New(Deps{Carts: carts})
	r := gin.New()
	r.GET("/cart", withSession("sess-1", 0), h.GetCart)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, genericFailure, decode(t, rec)["error"])
}
