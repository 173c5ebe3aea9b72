package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swiftcart/storefront/internal/product"
)

const productsBody = `[
  {"id": 1, "title": "Fjallraven Backpack", "price": 109.95,
   "description": "Fits 15 inch laptops", "category": "men's clothing",
   "image": "https://example.com/backpack.jpg",
   "rating": {"rate": 3.9, "count": 120}},
  {"id": 2, "title": "Mens Casual T-Shirt", "price": 22.3,
   "description": "Slim fit", "category": "men's clothing",
   "image": "https://example.com/shirt.jpg",
   "rating": {"rate": 4.1, "count": 259}}
]`

func newFakeStore(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(productsBody))
	})
	mux.HandleFunc("/products/categories", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["men's clothing","electronics"]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDecodeProducts(t *testing.T) {
	products, err := DecodeProducts([]byte(productsBody))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Fjallraven Backpack", products[0].Title)
	// The raw JSON number must survive exactly, not via a float round trip.
	assert.True(t, decimal.RequireFromString("109.95").Equal(products[0].Price))
	assert.Equal(t, "men's clothing", products[0].Category)
	assert.Equal(t, 3.9, products[0].Rating.Rate)
	assert.Equal(t, 120, products[0].Rating.Count)

	assert.True(t, decimal.RequireFromString("22.3").Equal(products[1].Price))
}

func TestDecodeProductsMalformed(t *testing.T) {
	_, err := DecodeProducts([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestClientRefresh(t *testing.T) {
	srv := newFakeStore(t)
	c := NewClient(srv.URL, zaptest.NewLogger(t))

	require.NoError(t, c.Refresh(context.Background()))

	products, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2+len(ExtraProducts()))

	p, err := c.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Mens Casual T-Shirt", p.Title)

	// Embedded extras are part of the same snapshot.
	p, err = c.GetByID(context.Background(), 901)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Noise Cancelling Earbuds Pro", p.Title)

	_, err = c.GetByID(context.Background(), 12345)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestClientServesExtrasBeforeFirstRefresh(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", zaptest.NewLogger(t))

	products, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, len(ExtraProducts()))
}

func TestClientRefreshFailureKeepsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, zaptest.NewLogger(t))
	assert.Error(t, c.Refresh(context.Background()))

	products, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, len(ExtraProducts()))
}

func TestStaticDeduplicatesIDs(t *testing.T) {
	s := NewStatic([]product.Product{
		{ID: 1, Title: "first", Category: "a"},
		{ID: 1, Title: "duplicate", Category: "a"},
		{ID: 2, Title: "second", Category: "b"},
	})

	products, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "first", products[0].Title)

	categories, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, categories)
}

func TestExtraProducts(t *testing.T) {
	extras := ExtraProducts()
	require.NotEmpty(t, extras)
	for _, p := range extras {
		assert.NotZero(t, p.ID)
		assert.NotEmpty(t, p.Title)
		assert.True(t, p.Price.IsPositive(), "product %d has non-positive price", p.ID)
	}
}
