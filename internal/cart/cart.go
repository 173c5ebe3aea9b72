// Package cart implements the storefront's pricing engine: the line-item
// collection, coupon application, shipping tier selection, totals computation,
// and order placement over a session-owned cart.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/swiftcart/storefront/internal/product"
)

// LineItem is a single product entry in the cart. The display fields are a
// snapshot taken at add-time so later catalog changes do not retroactively
// alter the cart or past orders.
type LineItem struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// newLineItem snapshots the product fields needed for display and pricing.
func newLineItem(p *product.Product, qty int) LineItem {
	return LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		Image:     p.Image,
		Category:  p.Category,
		UnitPrice: p.Price,
		Quantity:  qty,
	}
}

// ShippingMethod selects the shipping tier used for totals computation.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

var shippingRates = map[ShippingMethod]decimal.Decimal{
	ShippingStandard:  decimal.RequireFromString("4.99"),
	ShippingExpress:   decimal.RequireFromString("9.99"),
	ShippingOvernight: decimal.RequireFromString("19.99"),
}

// ParseShippingMethod maps a raw selection onto a shipping tier. Empty or
// unrecognized values fall back to standard shipping.
func ParseShippingMethod(s string) ShippingMethod {
	switch m := ShippingMethod(s); m {
	case ShippingExpress, ShippingOvernight, ShippingStandard:
		return m
	default:
		return ShippingStandard
	}
}

// Rate returns the tier's base shipping cost before any waiver applies.
func (m ShippingMethod) Rate() decimal.Decimal {
	if rate, ok := shippingRates[m]; ok {
		return rate
	}
	return shippingRates[ShippingStandard]
}

// Totals is the derived pricing breakdown for a cart state. It is recomputed
// on demand and never stored independently.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}
