package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/coupon"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/storage"
)

// Sentinel errors for cart operations.
var (
	// ErrUnknownProduct is returned when an operation references a product id
	// absent from the catalog. The cart is left untouched; callers mirroring
	// the storefront UI treat it as a no-op.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInvalidQuantity is returned when an add specifies a quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrEmptyCart is returned by PlaceOrder when there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
)

// Storage keys owned by the engine.
const (
	keyCart   = "cart"
	keyOrders = "orders"
)

// EventKind identifies a cart mutation for UI-observable notifications.
type EventKind string

const (
	EventItemAdded       EventKind = "item_added"
	EventItemRemoved     EventKind = "item_removed"
	EventQuantityChanged EventKind = "quantity_changed"
	EventCouponApplied   EventKind = "coupon_applied"
	EventCouponCleared   EventKind = "coupon_cleared"
	EventOrderPlaced     EventKind = "order_placed"
)

// Event describes a completed cart mutation.
type Event struct {
	Kind      EventKind
	ProductID int64
	Quantity  int
	OrderID   string
}

// Engine owns one session's cart, active coupon, and order history. Every
// public operation is atomic: the internal lock spans the whole
// read-then-write, so no two mutations interleave. State is persisted after
// each mutation on a best-effort basis; a storage failure is logged and the
// in-memory state stays authoritative.
type Engine struct {
	catalog product.Catalog
	coupons *coupon.Table
	store   storage.Store
	log     *zap.Logger
	now     func() time.Time
	notify  func(Event)

	mu     sync.Mutex
	items  []LineItem
	active *coupon.Coupon
	orders []Order
}

// NewEngine creates an engine for one session. The store is typically a
// session-prefixed view; pass storage.NewMemory() for throwaway carts.
func NewEngine(catalog product.Catalog, coupons *coupon.Table, store storage.Store, log *zap.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		coupons: coupons,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

// OnEvent registers a callback invoked after every successful mutation, on
// the mutating goroutine with no engine lock held. Must be set before the
// engine is shared.
func (e *Engine) OnEvent(fn func(Event)) {
	e.notify = fn
}

// Load rehydrates the cart and order history from storage. Missing keys are
// treated as empty state. The active coupon is session-only and never loaded.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadKey(ctx, keyCart, &e.items); err != nil {
		return errors.Wrap(err, "load cart")
	}
	if err := e.loadKey(ctx, keyOrders, &e.orders); err != nil {
		return errors.Wrap(err, "load orders")
	}
	return nil
}

func (e *Engine) loadKey(ctx context.Context, key string, dst any) error {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

// AddItem adds qty units of the given product to the cart. A repeated add
// increments the existing line item instead of creating a second entry. The
// product snapshot is captured on first add.
func (e *Engine) AddItem(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	p, err := e.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return ErrUnknownProduct
		}
		return errors.Wrap(err, "catalog lookup")
	}

	e.mu.Lock()
	if i := e.findItem(productID); i >= 0 {
		e.items[i].Quantity += qty
	} else {
		e.items = append(e.items, newLineItem(p, qty))
	}
	e.persist(ctx, keyCart, e.items)
	e.mu.Unlock()

	e.emit(Event{Kind: EventItemAdded, ProductID: productID, Quantity: qty})
	return nil
}

// RemoveItem deletes the line item for productID. Removing an absent product
// is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, productID int64) {
	e.mu.Lock()
	i := e.findItem(productID)
	if i < 0 {
		e.mu.Unlock()
		return
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	e.persist(ctx, keyCart, e.items)
	e.mu.Unlock()

	e.emit(Event{Kind: EventItemRemoved, ProductID: productID})
}

// ChangeQuantity adds delta (positive or negative) to the matching line
// item's quantity. A resulting quantity of zero or below removes the item.
// Changing an absent product is a no-op.
func (e *Engine) ChangeQuantity(ctx context.Context, productID int64, delta int) {
	e.mu.Lock()
	i := e.findItem(productID)
	if i < 0 {
		e.mu.Unlock()
		return
	}

	e.items[i].Quantity += delta
	removed := e.items[i].Quantity <= 0
	if removed {
		e.items = append(e.items[:i], e.items[i+1:]...)
	}
	qty := 0
	if !removed {
		qty = e.items[i].Quantity
	}
	e.persist(ctx, keyCart, e.items)
	e.mu.Unlock()

	if removed {
		e.emit(Event{Kind: EventItemRemoved, ProductID: productID})
		return
	}
	e.emit(Event{Kind: EventQuantityChanged, ProductID: productID, Quantity: qty})
}

// ApplyCoupon resolves a raw code against the coupon table and makes it the
// active coupon, replacing any previous one. An unknown code clears the
// active coupon and returns coupon.ErrInvalidCoupon.
func (e *Engine) ApplyCoupon(code string) (*coupon.Coupon, error) {
	c, err := e.coupons.Lookup(code)

	e.mu.Lock()
	if err != nil {
		had := e.active != nil
		e.active = nil
		e.mu.Unlock()
		if had {
			e.emit(Event{Kind: EventCouponCleared})
		}
		return nil, err
	}
	e.active = c
	e.mu.Unlock()

	e.emit(Event{Kind: EventCouponApplied})
	return c, nil
}

// ClearCoupon drops the active coupon, if any.
func (e *Engine) ClearCoupon() {
	e.mu.Lock()
	had := e.active != nil
	e.active = nil
	e.mu.Unlock()

	if had {
		e.emit(Event{Kind: EventCouponCleared})
	}
}

// ActiveCoupon returns the currently applied coupon, or nil.
func (e *Engine) ActiveCoupon() *coupon.Coupon {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return nil
	}
	c := *e.active
	return &c
}

// Items returns a copy of the cart's line items in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LineItem(nil), e.items...)
}

// Orders returns a copy of the order history, most recent first.
func (e *Engine) Orders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Order(nil), e.orders...)
}

// Totals computes the pricing breakdown for the current cart state and the
// given shipping selection. It has no side effects; calling it twice with
// unchanged state yields identical results.
func (e *Engine) Totals(method ShippingMethod) Totals {
	e.mu.Lock()
	items, active := e.items, e.active
	totals := ComputeTotals(items, active, method)
	e.mu.Unlock()
	return totals
}

// PlaceOrderRequest carries the checkout inputs for PlaceOrder.
type PlaceOrderRequest struct {
	Shipping ShippingMethod
	Contact  Contact
	Payment  string
}

// PlaceOrder snapshots the cart and its totals into an immutable Order,
// prepends it to the order history, and clears the cart and active coupon.
// It fails with ErrEmptyCart, making no state change, when the cart is empty.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	e.mu.Lock()
	if len(e.items) == 0 {
		e.mu.Unlock()
		return nil, ErrEmptyCart
	}

	couponCode := ""
	if e.active != nil {
		couponCode = e.active.Code
	}

	now := e.now()
	o := Order{
		ID:        newOrderID(now),
		CreatedAt: now.UTC(),
		Items:     append([]LineItem(nil), e.items...),
		Totals:    ComputeTotals(e.items, e.active, req.Shipping),
		Shipping:  req.Shipping,
		Contact:   req.Contact,
		Payment:   req.Payment,
		Coupon:    couponCode,
		Status:    StatusProcessing,
	}

	e.orders = append([]Order{o}, e.orders...)
	e.items = nil
	e.active = nil
	e.persist(ctx, keyOrders, e.orders)
	e.persist(ctx, keyCart, e.items)
	e.mu.Unlock()

	e.emit(Event{Kind: EventOrderPlaced, OrderID: o.ID})
	return &o, nil
}

func (e *Engine) findItem(productID int64) int {
	for i := range e.items {
		if e.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// persist writes one key fire-and-forget. Failures are logged and swallowed:
// in-memory state remains authoritative for the rest of the session.
// Callers hold e.mu.
func (e *Engine) persist(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = e.store.Set(ctx, key, data)
	}
	if err != nil {
		e.log.Warn("cart persistence failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (e *Engine) emit(ev Event) {
	if e.notify != nil {
		e.notify(ev)
	}
}
