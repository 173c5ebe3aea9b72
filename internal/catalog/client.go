// Package catalog supplies the read-only product collection: a client for the
// public Fake Store API merged with the storefront's own embedded products,
// plus a static in-memory variant.
package catalog

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swiftcart/storefront/internal/product"
)

// DefaultBaseURL is the public product API the storefront consumes read-only.
const DefaultBaseURL = "https://fakestoreapi.com"

// Client fetches the remote catalog once per Refresh and serves an immutable
// snapshot merged with the embedded extra products. It never writes to the
// remote API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu       sync.RWMutex
	snapshot *Static
}

// NewClient creates a catalog client for the given API base URL. Until the
// first successful Refresh the client serves the embedded products only.
func NewClient(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
		snapshot: NewStatic(ExtraProducts()),
	}
}

// Refresh fetches products and categories concurrently and swaps in a new
// snapshot. On failure the previous snapshot stays in place.
func (c *Client) Refresh(ctx context.Context) error {
	var (
		remote []product.Product
		g, gctx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		products, err := c.fetchProducts(gctx)
		if err != nil {
			return errors.Wrap(err, "fetch products")
		}
		remote = products
		return nil
	})

	// Categories are also derivable from the products; the remote list is
	// fetched for parity with the upstream API but only logged on mismatch.
	var remoteCategories []string
	g.Go(func() error {
		categories, err := c.fetchCategories(gctx)
		if err != nil {
			return errors.Wrap(err, "fetch categories")
		}
		remoteCategories = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	merged := NewStatic(append(remote, ExtraProducts()...))
	c.mu.Lock()
	c.snapshot = merged
	c.mu.Unlock()

	c.log.Info("catalog refreshed",
		zap.Int("remote_products", len(remote)),
		zap.Int("remote_categories", len(remoteCategories)),
		zap.Int("total_products", len(merged.products)),
	)
	return nil
}

func (c *Client) current() *Static {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	return c.current().List(ctx)
}

func (c *Client) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return c.current().GetByID(ctx, id)
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return c.current().Categories(ctx)
}

func (c *Client) fetchProducts(ctx context.Context) ([]product.Product, error) {
	body, err := c.get(ctx, "/products")
	if err != nil {
		return nil, err
	}
	return DecodeProducts(body)
}

func (c *Client) fetchCategories(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/products/categories")
	if err != nil {
		return nil, err
	}

	var categories []string
	d := jx.DecodeBytes(body)
	if err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		categories = append(categories, s)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}
	return categories, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	d := jx.Decode(resp.Body, 4096)
	raw, err := d.Raw()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s body", path)
	}
	return raw, nil
}

// DecodeProducts decodes a JSON array of products in the Fake Store API
// shape. Prices are decoded from the raw number so no float precision is
// lost on the way into decimal.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var products []product.Product
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
		case "title":
			p.Title, err = d.Str()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(num.String())
			}
		case "description":
			p.Description, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "rating":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "rate":
					p.Rating.Rate, err = d.Float64()
				case "count":
					p.Rating.Count, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}
