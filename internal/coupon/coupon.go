package coupon

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercent applies a percentage-based discount to the subtotal.
	KindPercent Kind = "percent"
	// KindFixed applies a fixed monetary discount to the subtotal.
	KindFixed Kind = "fixed"
	// KindFreeShipping waives the shipping cost and leaves the subtotal alone.
	KindFreeShipping Kind = "shipping"
)

// ErrInvalidCoupon is returned when a coupon code is not in the table.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// Coupon is a discount rule resolvable from a code.
type Coupon struct {
	Code        string          `json:"code"`
	Kind        Kind            `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// Table maps normalized (upper-case) codes to coupons. The table is fixed at
// construction and safe for concurrent lookups.
type Table struct {
	coupons map[string]Coupon
}

// NewTable builds a lookup table from the given coupons, keyed by their
// normalized codes.
func NewTable(coupons ...Coupon) *Table {
	m := make(map[string]Coupon, len(coupons))
	for _, c := range coupons {
		c.Code = Normalize(c.Code)
		m[c.Code] = c
	}
	return &Table{coupons: m}
}

// DefaultTable returns the storefront's built-in coupon set.
func DefaultTable() *Table {
	return NewTable(
		Coupon{Code: "SWIFT20", Kind: KindPercent, Value: decimal.NewFromInt(20), Description: "20% off"},
		Coupon{Code: "WELCOME10", Kind: KindPercent, Value: decimal.NewFromInt(10), Description: "10% off"},
		Coupon{Code: "FREE", Kind: KindFreeShipping, Value: decimal.Zero, Description: "Free shipping"},
		Coupon{Code: "SAVE5", Kind: KindFixed, Value: decimal.NewFromInt(5), Description: "$5 off"},
	)
}

// Lookup resolves a raw user-supplied code. The code is normalized before the
// lookup; ErrInvalidCoupon is returned when no coupon matches.
func (t *Table) Lookup(code string) (*Coupon, error) {
	c, ok := t.coupons[Normalize(code)]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return &c, nil
}

// Normalize trims surrounding whitespace and upper-cases a coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
