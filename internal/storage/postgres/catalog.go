package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftcart/storefront/internal/product"
)

var _ product.Catalog = (*Catalog)(nil)

// Catalog serves products from the products table, seeded out of band by the
// catalog-seed tool.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

const productColumns = `id, title, price, description, category, image, rating_rate, rating_count`

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.Category, &p.Image,
		&p.Rating.Rate, &p.Rating.Count)
	return p, err
}

func (c *Catalog) List(ctx context.Context) ([]product.Product, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

func (c *Catalog) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := scanProduct(c.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// Upsert inserts or replaces one product. Used by the catalog-seed tool.
func (c *Catalog) Upsert(ctx context.Context, p *product.Product) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   price = EXCLUDED.price,
		   description = EXCLUDED.description,
		   category = EXCLUDED.category,
		   image = EXCLUDED.image,
		   rating_rate = EXCLUDED.rating_rate,
		   rating_count = EXCLUDED.rating_count`,
		p.ID, p.Title, p.Price, p.Description, p.Category, p.Image,
		p.Rating.Rate, p.Rating.Count,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert product %d", p.ID)
	}
	return nil
}
