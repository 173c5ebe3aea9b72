//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/storage"
)

// startPostgres runs a disposable postgres container and returns its URL.
func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "swift",
				"POSTGRES_PASSWORD": "swift",
				"POSTGRES_DB":       "swift",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://swift:swift@%s:%s/swift?sslmode=disable", host, port.Port())
}

func TestPostgresBackends(t *testing.T) {
	ctx := context.Background()
	url := startPostgres(t, ctx)

	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, RunMigrations(ctx, pool))

	t.Run("kv", func(t *testing.T) {
		kv := NewKV(pool)

		_, err := kv.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, kv.Set(ctx, "cart", []byte(`{"items":[]}`)))
		require.NoError(t, kv.Set(ctx, "cart", []byte(`{"items":[1]}`)))

		got, err := kv.Get(ctx, "cart")
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[1]}`, string(got))

		require.NoError(t, kv.Delete(ctx, "cart"))
		_, err = kv.Get(ctx, "cart")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("catalog", func(t *testing.T) {
		cat := NewCatalog(pool)

		p := &product.Product{
			ID:          101,
			Title:       "Smart Watch Pro",
			Price:       decimal.RequireFromString("199.99"),
			Description: "Fitness tracking",
			Category:    "electronics",
			Image:       "https://img.example/watch.jpg",
			Rating:      product.Rating{Rate: 4.5, Count: 120},
		}
		require.NoError(t, cat.Upsert(ctx, p))

		got, err := cat.GetByID(ctx, 101)
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(p.Price), "NUMERIC price survives exactly")
		assert.Equal(t, p.Title, got.Title)

		_, err = cat.GetByID(ctx, 999)
		assert.ErrorIs(t, err, product.ErrNotFound)

		p.Price = decimal.RequireFromString("149.99")
		require.NoError(t, cat.Upsert(ctx, p))
		got, err = cat.GetByID(ctx, 101)
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(p.Price), "upsert replaces")

		products, err := cat.List(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)

		cats, err := cat.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"electronics"}, cats)
	})
}
