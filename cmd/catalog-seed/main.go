// catalog-seed populates the products table from either the remote catalog
// API or a gzipped JSON dump, plus the storefront's bundled extra products.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/swiftcart/storefront/internal/catalog"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		baseURL     string
		dumpFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&baseURL, "base-url", catalog.DefaultBaseURL, "catalog API base URL")
	flag.StringVar(&dumpFile, "file", "", "gzipped products JSON dump; skips the remote fetch")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, baseURL, dumpFile); err != nil {
		slog.Error("catalog seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog seed completed successfully")
}

func run(ctx context.Context, databaseURL, baseURL, dumpFile string) error {
	var (
		products []product.Product
		err      error
	)
	if dumpFile != "" {
		slog.Info("reading dump", slog.String("file", dumpFile))
		products, err = readDump(dumpFile)
	} else {
		slog.Info("fetching remote catalog", slog.String("base_url", baseURL))
		products, err = fetchRemote(ctx, baseURL)
	}
	if err != nil {
		return err
	}

	products = append(products, catalog.ExtraProducts()...)
	slog.Info("products to seed", slog.Int("count", len(products)))

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Upsert with a small worker pool; products are independent rows.
	cat := postgres.NewCatalog(pool)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range products {
		p := &products[i]
		g.Go(func() error {
			return cat.Upsert(gctx, p)
		})
	}
	return g.Wait()
}

// readDump streams a gzipped JSON product array from disk.
func readDump(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip stream")
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "read dump")
	}
	return catalog.DecodeProducts(data)
}

func fetchRemote(ctx context.Context, baseURL string) ([]product.Product, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/products", nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch products: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return catalog.DecodeProducts(data)
}
