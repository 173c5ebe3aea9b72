// Package wishlist holds the session's secondary product lists: the wishlist,
// the compare tray, and the recently-viewed history. Each persists a snapshot
// of display fields, not a live catalog reference.
package wishlist

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/storage"
)

// ErrFull is returned by a capped list when toggling on one more product
// would exceed its capacity.
var ErrFull = errors.New("list is full")

// compareCap matches the storefront's four-product compare tray.
const compareCap = 4

// recentCap bounds the recently-viewed history.
const recentCap = 10

// Item is a product snapshot held in a list.
type Item struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
}

func snapshot(p *product.Product) Item {
	return Item{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
	}
}

// List is a toggle-based product list with an optional capacity, persisted
// under one storage key.
type List struct {
	store storage.Store
	log   *zap.Logger
	key   string
	cap   int

	mu    sync.Mutex
	items []Item
}

// NewWishlist returns the session's unbounded wishlist.
func NewWishlist(store storage.Store, log *zap.Logger) *List {
	return &List{store: store, log: log, key: "wishlist"}
}

// NewCompare returns the session's compare tray, capped at four products.
func NewCompare(store storage.Store, log *zap.Logger) *List {
	return &List{store: store, log: log, key: "compare", cap: compareCap}
}

// Load rehydrates the list from storage; a missing key means an empty list.
func (l *List) Load(ctx context.Context) error {
	data, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "load %s", l.key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return json.Unmarshal(data, &l.items)
}

// Toggle adds the product when absent and removes it when present. It
// reports whether the product is in the list afterwards. Toggling onto a
// full capped list returns ErrFull.
func (l *List) Toggle(ctx context.Context, p *product.Product) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if item.ProductID == p.ID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.persist(ctx)
			return false, nil
		}
	}

	if l.cap > 0 && len(l.items) >= l.cap {
		return false, ErrFull
	}
	l.items = append(l.items, snapshot(p))
	l.persist(ctx)
	return true, nil
}

// Contains reports whether the product is currently in the list.
func (l *List) Contains(productID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, item := range l.items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// Items returns a copy of the list in insertion order.
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...)
}

func (l *List) persist(ctx context.Context) {
	data, err := json.Marshal(l.items)
	if err == nil {
		err = l.store.Set(ctx, l.key, data)
	}
	if err != nil {
		l.log.Warn("list persistence failed", zap.String("key", l.key), zap.Error(err))
	}
}

// Recents is the most-recently-viewed product history: newest first,
// deduplicated, capped.
type Recents struct {
	store storage.Store
	log   *zap.Logger

	mu    sync.Mutex
	items []Item
}

// NewRecents returns the session's recently-viewed history.
func NewRecents(store storage.Store, log *zap.Logger) *Recents {
	return &Recents{store: store, log: log}
}

// Load rehydrates the history from storage.
func (r *Recents) Load(ctx context.Context) error {
	data, err := r.store.Get(ctx, "recent")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "load recent")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Unmarshal(data, &r.items)
}

// Record moves the product to the front of the history, dropping any earlier
// occurrence and trimming to capacity.
func (r *Recents) Record(ctx context.Context, p *product.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ProductID == p.ID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	r.items = append([]Item{snapshot(p)}, r.items...)
	if len(r.items) > recentCap {
		r.items = r.items[:recentCap]
	}

	data, err := json.Marshal(r.items)
	if err == nil {
		err = r.store.Set(ctx, "recent", data)
	}
	if err != nil {
		r.log.Warn("list persistence failed", zap.String("key", "recent"), zap.Error(err))
	}
}

// Items returns a copy of the history, newest first.
func (r *Recents) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...)
}
