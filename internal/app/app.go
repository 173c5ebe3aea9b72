package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/api"
	"github.com/swiftcart/storefront/internal/catalog"
	"github.com/swiftcart/storefront/internal/coupon"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/session"
	"github.com/swiftcart/storefront/internal/storage"
	"github.com/swiftcart/storefront/internal/storage/postgres"
	"github.com/swiftcart/storefront/pkg/health"
	"github.com/swiftcart/storefront/pkg/httpmiddleware"
)

// catalogRefreshInterval is how often the remote catalog is re-fetched.
const catalogRefreshInterval = time.Hour

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Session storage: Postgres when configured, local files otherwise.
	var store storage.Store
	var seeded product.Catalog
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, pool.Ping)

		store = postgres.NewKV(pool)
		seeded = postgres.NewCatalog(pool)
	} else {
		fileStore, err := storage.NewFile(cfg.DataDir)
		if err != nil {
			return errors.Wrap(err, "create file store")
		}
		store = fileStore
	}

	// The catalog prefers seeded Postgres products and falls back to the
	// remote store plus the bundled extras.
	client := catalog.NewClient(cfg.CatalogBaseURL, lg)
	if err := client.Refresh(ctx); err != nil {
		lg.Warn("Catalog refresh failed, serving bundled products", zap.Error(err))
	}
	go refreshLoop(ctx, lg, client)

	cat := pickCatalog(ctx, lg, seeded, client)

	sessions := session.NewManager(cat, coupon.DefaultTable(), store, lg)
	handler, err := api.NewHandler(sessions, cat, lg, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create api handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.Register(mux)

	healthSvc.SetReady(true)

	instrumented := otelhttp.NewHandler(mux, "storefront.api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "X-Session-ID", "X-Request-ID"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// pickCatalog serves products from Postgres when the table has been seeded,
// otherwise from the remote catalog client.
func pickCatalog(ctx context.Context, lg *zap.Logger, seeded product.Catalog, client *catalog.Client) product.Catalog {
	if seeded == nil {
		return client
	}
	products, err := seeded.List(ctx)
	if err != nil || len(products) == 0 {
		lg.Info("Product table empty, serving remote catalog", zap.Error(err))
		return client
	}
	lg.Info("Serving seeded catalog", zap.Int("products", len(products)))
	return seeded
}

func refreshLoop(ctx context.Context, lg *zap.Logger, client *catalog.Client) {
	ticker := time.NewTicker(catalogRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Refresh(ctx); err != nil {
				lg.Warn("Catalog refresh failed", zap.Error(err))
			}
		}
	}
}
