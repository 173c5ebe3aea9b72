// Package session assembles the per-session storefront state: the cart
// engine plus the wishlist, compare tray, recently-viewed history, reviews,
// loyalty account, and signed-in user, all persisted under a session-scoped
// key prefix.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/auth"
	"github.com/swiftcart/storefront/internal/cart"
	"github.com/swiftcart/storefront/internal/coupon"
	"github.com/swiftcart/storefront/internal/loyalty"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/review"
	"github.com/swiftcart/storefront/internal/storage"
	"github.com/swiftcart/storefront/internal/wishlist"
)

// Session is one customer's storefront state.
type Session struct {
	ID       string
	Cart     *cart.Engine
	Wishlist *wishlist.List
	Compare  *wishlist.List
	Recents  *wishlist.Recents
	Reviews  *review.Log
	Loyalty  *loyalty.Account
	Auth     *auth.Service
}

// Manager creates and caches live sessions. Session ids are UUIDs; an
// unknown or malformed id yields a fresh session rather than an error.
type Manager struct {
	catalog product.Catalog
	coupons *coupon.Table
	store   storage.Store
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager that namespaces each session's keys inside
// the given store.
func NewManager(catalog product.Catalog, coupons *coupon.Table, store storage.Store, log *zap.Logger) *Manager {
	return &Manager{
		catalog:  catalog,
		coupons:  coupons,
		store:    store,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for id, rehydrating it from storage on first
// touch. An empty or malformed id mints a new session.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	// Hydration happens under the lock so a concurrent Get for the same id
	// never sees a half-loaded session.
	s := m.build(id)
	m.hydrate(ctx, s)
	m.sessions[id] = s
	return s
}

func (m *Manager) build(id string) *Session {
	lg := m.log.With(zap.String("session", id))
	store := storage.WithPrefix(m.store, "swiftcart:"+id+":")

	s := &Session{
		ID:       id,
		Cart:     cart.NewEngine(m.catalog, m.coupons, store, lg),
		Wishlist: wishlist.NewWishlist(store, lg),
		Compare:  wishlist.NewCompare(store, lg),
		Recents:  wishlist.NewRecents(store, lg),
		Reviews:  review.NewLog(store, lg),
		Loyalty:  loyalty.NewAccount(store, lg),
		Auth:     auth.NewService(store, lg),
	}
	s.Cart.OnEvent(func(ev cart.Event) {
		lg.Debug("cart event",
			zap.String("kind", string(ev.Kind)),
			zap.Int64("product_id", ev.ProductID),
			zap.Int("quantity", ev.Quantity),
			zap.String("order_id", ev.OrderID),
		)
	})
	return s
}

// hydrate loads persisted state best-effort: a corrupted or unreadable key
// is logged and the component starts empty.
func (m *Manager) hydrate(ctx context.Context, s *Session) {
	loaders := []struct {
		name string
		load func(context.Context) error
	}{
		{"cart", s.Cart.Load},
		{"wishlist", s.Wishlist.Load},
		{"compare", s.Compare.Load},
		{"recents", s.Recents.Load},
		{"reviews", s.Reviews.Load},
		{"loyalty", s.Loyalty.Load},
		{"user", s.Auth.Load},
	}
	for _, l := range loaders {
		if err := l.load(ctx); err != nil {
			m.log.Warn("session hydration failed",
				zap.String("session", s.ID),
				zap.String("component", l.name),
				zap.Error(err),
			)
		}
	}
}
