package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"pickup-kitchen/metrics"
	"pickup-kitchen/models"
)

// ItemSource resolves the orderable menu item being added.
type ItemSource interface {
	GetItemByID(ctx context.Context, id uint) (*models.MenuItem, error)
}

const lockStripes = 64

// ErrClearAfterCheckout reports that the order was placed but the cart could
// not be dropped afterwards.
var ErrClearAfterCheckout = errors.New("cart not cleared after checkout")

// Manager serializes mutations per session so a double-clicked add or remove
// cannot interleave its load and save with another one.
type Manager struct {
	store   Store
	items   ItemSource
	metrics *metrics.Metrics
	locks   [lockStripes]sync.Mutex
}

func NewManager(store Store, items ItemSource, m *metrics.Metrics) *Manager {
	return &Manager{store: store, items: items, metrics: m}
}

func (m *Manager) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &m.locks[h.Sum32()%lockStripes]
}

func (m *Manager) Get(ctx context.Context, sessionID string) (*Cart, error) {
	return m.store.Load(ctx, sessionID)
}

// Add prices the item at its current menu price and merges it into the
// session's cart.
func (m *Manager) Add(ctx context.Context, sessionID string, menuItemID uint, quantity string, subQuantity int, categoryID uint) (*Cart, error) {
	item, err := m.items.GetItemByID(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	c, err := m.update(ctx, sessionID, func(c *Cart) error {
		return c.AddOrUpdate(item, quantity, subQuantity, categoryID)
	})
	if err == nil {
		m.metrics.CartMutated("add")
	}
	return c, err
}

func (m *Manager) Remove(ctx context.Context, sessionID string, menuItemID uint) (*Cart, error) {
	c, err := m.update(ctx, sessionID, func(c *Cart) error {
		c.Remove(menuItemID)
		return nil
	})
	if err == nil {
		m.metrics.CartMutated("remove")
	}
	return c, err
}

func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	mu := m.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.metrics.CartMutated("clear")
	return nil
}

// Checkout hands the session's lines to place while holding the session
// lock, and drops the cart only when place succeeds. A second checkout of
// the same session waits and then finds the cart empty.
func (m *Manager) Checkout(ctx context.Context, sessionID string, place func(lines []LineItem, categoryID uint) error) error {
	mu := m.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	c, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	lines, categoryID := c.Snapshot()
	if err := place(lines, categoryID); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %w", ErrClearAfterCheckout, err)
	}
	m.metrics.CartMutated("checkout")
	return nil
}

func (m *Manager) update(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	mu := m.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	c, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}
