package catalog

import (
	"context"
	"sort"

	"github.com/swiftcart/storefront/internal/product"
)

// Static is an immutable in-memory catalog over a fixed product slice. It
// backs offline mode and tests.
type Static struct {
	products   []product.Product
	byID       map[int64]product.Product
	categories []string
}

// NewStatic builds a catalog from the given products. Later duplicates of a
// product id are dropped.
func NewStatic(products []product.Product) *Static {
	s := &Static{byID: make(map[int64]product.Product, len(products))}
	seen := make(map[string]struct{})
	for _, p := range products {
		if _, dup := s.byID[p.ID]; dup {
			continue
		}
		s.byID[p.ID] = p
		s.products = append(s.products, p)
		if _, ok := seen[p.Category]; !ok && p.Category != "" {
			seen[p.Category] = struct{}{}
			s.categories = append(s.categories, p.Category)
		}
	}
	sort.Strings(s.categories)
	return s
}

func (s *Static) List(_ context.Context) ([]product.Product, error) {
	return append([]product.Product(nil), s.products...), nil
}

func (s *Static) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *Static) Categories(_ context.Context) ([]string, error) {
	return append([]string(nil), s.categories...), nil
}
