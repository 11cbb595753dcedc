package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"pickup-kitchen/accounts"
	"pickup-kitchen/apperr"
	"pickup-kitchen/cart"
	"pickup-kitchen/catalog"
	"pickup-kitchen/logger"
	"pickup-kitchen/middleware"
	"pickup-kitchen/models"
	"pickup-kitchen/orders"
	"pickup-kitchen/pricing"
	"pickup-kitchen/statemachine"

	"github.com/gin-gonic/gin"
)

type Catalog interface {
	ListVisibleCategories(ctx context.Context, excludeSentinel bool) ([]models.MenuCategory, error)
	ListItemsForCategory(ctx context.Context, categoryID uint) ([]models.MenuItem, error)
	GetItemByID(ctx context.Context, id uint) (*models.MenuItem, error)
	GetCategory(ctx context.Context, id uint) (*models.MenuCategory, error)
	SaveCategory(ctx context.Context, category *models.MenuCategory, itemIDs []uint) error
	DeleteCategory(ctx context.Context, id uint) error
	SaveMenuItem(ctx context.Context, item *models.MenuItem, quantityIDs, categoryIDs []uint) error
	DeleteMenuItem(ctx context.Context, id uint) error
	ListAllItems(ctx context.Context) ([]models.MenuItem, error)
	ListFoodTypes(ctx context.Context) ([]models.FoodType, error)
	ListQuantities(ctx context.Context) ([]models.Quantity, error)
	ListSubQuantities(ctx context.Context) ([]models.SubQuantity, error)
	ListPickupTimes(ctx context.Context, activeOnly bool) ([]models.PickupTime, error)
	SavePickupTime(ctx context.Context, pt *models.PickupTime) error
	DeletePickupTime(ctx context.Context, id uint) error
}

type Carts interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Add(ctx context.Context, sessionID string, menuItemID uint, quantity string, subQuantity int, categoryID uint) (*cart.Cart, error)
	Remove(ctx context.Context, sessionID string, menuItemID uint) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	Checkout(ctx context.Context, sessionID string, place func(lines []cart.LineItem, categoryID uint) error) error
}

type Orders interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*models.Order, error)
	UpdateStatus(ctx context.Context, change orders.StatusChange) (*models.Order, error)
	ListActiveOrders(ctx context.Context, ownerID uint) ([]models.Order, error)
	ListHistoricalOrders(ctx context.Context, ownerID uint) ([]models.Order, error)
	ListOrdersForContact(ctx context.Context, contact orders.Contact) ([]models.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	RestaurantForOwner(ctx context.Context, ownerID uint) (uint, error)
	ListStatuses(ctx context.Context) ([]models.OrderStatusMaster, error)
}

type Accounts interface {
	Register(ctx context.Context, req accounts.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	ListOwners(ctx context.Context, pendingOnly bool) ([]models.User, error)
	VerifyOwner(ctx context.Context, id uint) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, requestID, token, newPassword string) error
}

type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

var (
	_ Catalog     = (*catalog.Store)(nil)
	_ Carts       = (*cart.Manager)(nil)
	_ Orders      = (*orders.Service)(nil)
	_ Accounts    = (*accounts.Service)(nil)
	_ TokenIssuer = (*middleware.Auth)(nil)
)

type Deps struct {
	Catalog           Catalog
	Carts             Carts
	Orders            Orders
	Accounts          Accounts
	Tokens            TokenIssuer
	Logger            *logger.Logger
	PublicBaseURL     string
	StrictTransitions bool
}

type Handler struct {
	catalog  Catalog
	carts    Carts
	orders   Orders
	accounts Accounts
	tokens   TokenIssuer
	log      *logger.Logger
	baseURL  string
	strict   bool
}

func New(d Deps) *Handler {
	h := &Handler{
		catalog:  d.Catalog,
		carts:    d.Carts,
		orders:   d.Orders,
		accounts: d.Accounts,
		tokens:   d.Tokens,
		log:      d.Logger,
		baseURL:  d.PublicBaseURL,
		strict:   d.StrictTransitions,
	}
	if h.log == nil {
		h.log = logger.Discard()
	}
	return h
}

const genericFailure = "Something went wrong, please try again later"

// publicErrors carry text written for callers. Any other error in a
// taxonomy class is answered with the class message alone.
var publicErrors = []error{
	orders.ErrEmptyOrder,
	orders.ErrInvalidCategory,
	orders.ErrInvalidLine,
	orders.ErrOrderNotFound,
	cart.ErrItemRequired,
	pricing.ErrInvalidQuantity,
	statemachine.ErrInvalidStatus,
	statemachine.ErrInvalidTransition,
	accounts.ErrInvalidResetToken,
	accounts.ErrAlreadyRegistered,
}

func publicMessage(err error, fallback string) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}

// respondError maps the error taxonomy to a status code. Only validation
// messages and known domain errors reach the caller verbatim; the full
// chain is logged.
func (h *Handler) respondError(c *gin.Context, action string, err error) {
	var verr apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, apperr.ErrInvalidInput):
		h.logRejected(c, action, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err, "invalid request")})
	case errors.Is(err, apperr.ErrNotFound):
		h.logRejected(c, action, err)
		c.JSON(http.StatusNotFound, gin.H{"error": publicMessage(err, "not found")})
	case errors.Is(err, apperr.ErrConflict):
		h.logRejected(c, action, err)
		c.JSON(http.StatusConflict, gin.H{"error": publicMessage(err, "already exists")})
	default:
		h.log.Error(action, "request failed", err,
			slog.String("request_id", middleware.GetRequestID(c)),
			slog.String("path", c.FullPath()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": genericFailure})
	}
}

func (h *Handler) logRejected(c *gin.Context, action string, err error) {
	h.log.Warn(action, "request rejected",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(c)))
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}
