package cart

import (
	"github.com/shopspring/decimal"

	"github.com/swiftcart/storefront/internal/coupon"
)

var (
	hundred = decimal.NewFromInt(100)

	// taxRate is the flat sales tax applied after discounts, before shipping.
	taxRate = decimal.RequireFromString("0.08")

	// freeShippingThreshold waives shipping when the raw subtotal reaches it.
	freeShippingThreshold = decimal.NewFromInt(50)
)

// ComputeTotals derives the pricing breakdown for the given cart state. It is
// a pure function: it never mutates its inputs and has no side effects.
//
// The steps compose in a fixed order: subtotal, coupon discount, shipping
// (free-shipping coupon first, then the subtotal threshold, then the selected
// tier), then tax on the discounted subtotal.
//
// Fixed-amount discounts are deliberately not clamped to the subtotal: a $5
// coupon on a $3 cart yields a negative discounted amount and therefore
// negative tax and total, matching the storefront's observed behavior.
func ComputeTotals(items []LineItem, active *coupon.Coupon, method ShippingMethod) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}

	discount := decimal.Zero
	if active != nil {
		switch active.Kind {
		case coupon.KindPercent:
			discount = subtotal.Mul(active.Value).Div(hundred)
		case coupon.KindFixed:
			discount = active.Value
		case coupon.KindFreeShipping:
			// Affects the shipping step only.
		}
	}
	afterDiscount := subtotal.Sub(discount)

	shipping := decimal.Zero
	switch {
	case active != nil && active.Kind == coupon.KindFreeShipping:
	case subtotal.GreaterThanOrEqual(freeShippingThreshold):
		// Threshold uses the raw subtotal, not the discounted amount.
	default:
		shipping = method.Rate()
	}

	tax := afterDiscount.Mul(taxRate)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    afterDiscount.Add(shipping).Add(tax),
	}
}
