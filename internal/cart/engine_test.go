package cart

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swiftcart/storefront/internal/coupon"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/storage"
)

// --- Mocks ---

type mockCatalog struct {
	byID map[int64]product.Product
}

func (m *mockCatalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalog) Categories(_ context.Context) ([]string, error) {
	return nil, nil
}

type failingStore struct {
	storage.Store
}

func (f *failingStore) Set(_ context.Context, _ string, _ []byte) error {
	return errors.New("quota exceeded")
}

// --- Helpers ---

func testCatalog() *mockCatalog {
	return &mockCatalog{byID: map[int64]product.Product{
		1: {ID: 1, Title: "Wireless Earbuds", Price: d("25"), Category: "electronics", Image: "earbuds.jpg"},
		2: {ID: 2, Title: "Yoga Mat", Price: d("29.99"), Category: "sports", Image: "mat.jpg"},
		3: {ID: 3, Title: "Sticker Pack", Price: d("3"), Category: "misc", Image: "stickers.jpg"},
	}}
}

func newTestEngine(t *testing.T, store storage.Store) *Engine {
	t.Helper()
	if store == nil {
		store = storage.NewMemory()
	}
	return NewEngine(testCatalog(), coupon.DefaultTable(), store, zaptest.NewLogger(t))
}

// --- Tests ---

func TestAddItemAccumulatesQuantity(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	require.NoError(t, e.AddItem(ctx, 1, 1))
	require.NoError(t, e.AddItem(ctx, 1, 2))
	require.NoError(t, e.AddItem(ctx, 1, 3))

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 6, items[0].Quantity)
	assert.Equal(t, "Wireless Earbuds", items[0].Title)
}

func TestAddItemKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	require.NoError(t, e.AddItem(ctx, 2, 1))
	require.NoError(t, e.AddItem(ctx, 1, 1))
	require.NoError(t, e.AddItem(ctx, 2, 1))

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.Equal(t, int64(1), items[1].ProductID)
}

func TestAddItemUnknownProduct(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	err := e.AddItem(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.Empty(t, e.Items())
}

func TestAddItemInvalidQuantity(t *testing.T) {
	e := newTestEngine(t, nil)

	assert.ErrorIs(t, e.AddItem(context.Background(), 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, e.AddItem(context.Background(), 1, -2), ErrInvalidQuantity)
	assert.Empty(t, e.Items())
}

func TestAddItemSnapshotsProduct(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	e := NewEngine(cat, coupon.DefaultTable(), storage.NewMemory(), zaptest.NewLogger(t))
	require.NoError(t, e.AddItem(ctx, 1, 1))

	// A later catalog price change must not alter the line item.
	p := cat.byID[1]
	p.Price = d("99")
	cat.byID[1] = p

	items := e.Items()
	require.Len(t, items, 1)
	assert.True(t, d("25").Equal(items[0].UnitPrice))
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	require.NoError(t, e.AddItem(ctx, 1, 2))
	e.RemoveItem(ctx, 1)
	assert.Empty(t, e.Items())

	// Removing an absent product is a no-op.
	e.RemoveItem(ctx, 42)
	assert.Empty(t, e.Items())
}

func TestChangeQuantity(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddItem(ctx, 1, 3))

	e.ChangeQuantity(ctx, 1, 2)
	require.Len(t, e.Items(), 1)
	assert.Equal(t, 5, e.Items()[0].Quantity)

	e.ChangeQuantity(ctx, 1, -4)
	assert.Equal(t, 1, e.Items()[0].Quantity)

	// Driving quantity to zero removes the item entirely.
	e.ChangeQuantity(ctx, 1, -1)
	assert.Empty(t, e.Items())

	// Absent product is a no-op.
	e.ChangeQuantity(ctx, 1, 5)
	assert.Empty(t, e.Items())
}

func TestChangeQuantityByFullAmountRemoves(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddItem(ctx, 2, 7))

	e.ChangeQuantity(ctx, 2, -7)
	assert.Empty(t, e.Items())
}

func TestApplyCoupon(t *testing.T) {
	e := newTestEngine(t, nil)

	c, err := e.ApplyCoupon("  swift20 ")
	require.NoError(t, err)
	assert.Equal(t, "SWIFT20", c.Code)
	assert.Equal(t, "20% off", c.Description)
	require.NotNil(t, e.ActiveCoupon())

	// A new valid code replaces the previous one.
	c, err = e.ApplyCoupon("SAVE5")
	require.NoError(t, err)
	assert.Equal(t, coupon.KindFixed, c.Kind)
	assert.Equal(t, "SAVE5", e.ActiveCoupon().Code)

	// An unknown code clears the active coupon and reports failure.
	_, err = e.ApplyCoupon("NOPE")
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Nil(t, e.ActiveCoupon())
}

func TestApplyCouponEventOnlyWhenActiveCleared(t *testing.T) {
	e := newTestEngine(t, nil)

	var kinds []EventKind
	e.OnEvent(func(ev Event) { kinds = append(kinds, ev.Kind) })

	// Rejecting a code while no coupon is active changes nothing to announce.
	_, err := e.ApplyCoupon("NOPE")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Empty(t, kinds)

	_, err = e.ApplyCoupon("SWIFT20")
	require.NoError(t, err)
	_, err = e.ApplyCoupon("NOPE")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	assert.Equal(t, []EventKind{EventCouponApplied, EventCouponCleared}, kinds)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.PlaceOrder(context.Background(), PlaceOrderRequest{Shipping: ShippingStandard})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, e.Orders())
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddItem(ctx, 1, 4))
	_, err := e.ApplyCoupon("SWIFT20")
	require.NoError(t, err)

	o, err := e.PlaceOrder(ctx, PlaceOrderRequest{
		Shipping: ShippingStandard,
		Contact:  Contact{Name: "Ada Lovelace", City: "London"},
		Payment:  "card",
	})
	require.NoError(t, err)

	assert.True(t, d("86.40").Equal(o.Totals.Total), "total: got %s", o.Totals.Total)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, "SWIFT20", o.Coupon)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 4, o.Items[0].Quantity)

	// Cart and coupon are cleared; history gets exactly one new entry in front.
	assert.Empty(t, e.Items())
	assert.Nil(t, e.ActiveCoupon())
	orders := e.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)

	require.NoError(t, e.AddItem(ctx, 2, 1))
	second, err := e.PlaceOrder(ctx, PlaceOrderRequest{Shipping: ShippingExpress})
	require.NoError(t, err)

	orders = e.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID, "most recent order first")
	assert.Equal(t, o.ID, orders[1].ID)
	assert.NotEqual(t, o.ID, second.ID)
}

func TestOrderIDMatchesCreatedAt(t *testing.T) {
	e := newTestEngine(t, nil)

	// A clock that jumps a millisecond per reading would desynchronize the
	// id and CreatedAt if PlaceOrder sampled it more than once.
	base := time.UnixMilli(1_700_000_000_000)
	calls := 0
	e.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * time.Millisecond)
	}

	require.NoError(t, e.AddItem(context.Background(), 1, 1))
	o, err := e.PlaceOrder(context.Background(), PlaceOrderRequest{Shipping: ShippingStandard})
	require.NoError(t, err)

	wantPrefix := "#SW-" + strings.ToUpper(strconv.FormatInt(base.UnixMilli(), 36))
	assert.True(t, strings.HasPrefix(o.ID, wantPrefix), "id %s should start with %s", o.ID, wantPrefix)
	assert.Equal(t, base.UTC(), o.CreatedAt)
}

func TestOrderIDFormat(t *testing.T) {
	e := newTestEngine(t, nil)
	require.NoError(t, e.AddItem(context.Background(), 1, 1))
	o, err := e.PlaceOrder(context.Background(), PlaceOrderRequest{Shipping: ShippingStandard})
	require.NoError(t, err)

	assert.Regexp(t, `^#SW-[0-9A-Z]+$`, o.ID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	e := newTestEngine(t, store)
	require.NoError(t, e.AddItem(ctx, 1, 2))
	require.NoError(t, e.AddItem(ctx, 2, 1))

	// A fresh engine over the same store reproduces the same line items.
	reloaded := newTestEngine(t, store)
	require.NoError(t, reloaded.Load(ctx))

	items := reloaded.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, d("25").Equal(items[0].UnitPrice))
	assert.Equal(t, int64(2), items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, &failingStore{})

	require.NoError(t, e.AddItem(ctx, 1, 1))
	require.Len(t, e.Items(), 1, "in-memory state stays authoritative")

	_, err := e.PlaceOrder(ctx, PlaceOrderRequest{Shipping: ShippingStandard})
	require.NoError(t, err)
	assert.Len(t, e.Orders(), 1)
}

func TestEngineEvents(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	var kinds []EventKind
	e.OnEvent(func(ev Event) { kinds = append(kinds, ev.Kind) })

	require.NoError(t, e.AddItem(ctx, 1, 1))
	e.ChangeQuantity(ctx, 1, 1)
	_, _ = e.ApplyCoupon("FREE")
	_, err := e.PlaceOrder(ctx, PlaceOrderRequest{Shipping: ShippingStandard})
	require.NoError(t, err)

	assert.Equal(t, []EventKind{
		EventItemAdded,
		EventQuantityChanged,
		EventCouponApplied,
		EventOrderPlaced,
	}, kinds)
}
