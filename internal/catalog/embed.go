package catalog

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/swiftcart/storefront/internal/product"
)

//go:embed extra_products.json
var extraProductsJSON []byte

var extraOnce = sync.OnceValues(func() ([]product.Product, error) {
	var products []product.Product
	if err := json.Unmarshal(extraProductsJSON, &products); err != nil {
		return nil, err
	}
	return products, nil
})

// ExtraProducts returns the storefront's own product set, shipped alongside
// the remote catalog. The slice is shared; callers must not mutate it.
func ExtraProducts() []product.Product {
	products, err := extraOnce()
	if err != nil {
		// The file is embedded and validated by tests; a decode failure here
		// is a build defect.
		panic(err)
	}
	return products
}
