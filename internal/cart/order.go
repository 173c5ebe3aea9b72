package cart

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"
	"time"
)

// OrderStatus tracks an order through its simulated lifecycle.
type OrderStatus string

// StatusProcessing is the status every freshly placed order starts in.
const StatusProcessing OrderStatus = "processing"

// Contact holds the shipping contact captured at checkout. All fields are
// optional display data; nothing here is verified.
type Contact struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Order is an immutable snapshot of a cart and its totals at the moment of
// checkout.
type Order struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Items     []LineItem     `json:"items"`
	Totals    Totals         `json:"totals"`
	Shipping  ShippingMethod `json:"shipping"`
	Contact   Contact        `json:"contact"`
	Payment   string         `json:"payment,omitempty"`
	Coupon    string         `json:"coupon,omitempty"`
	Status    OrderStatus    `json:"status"`
}

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newOrderID generates an order identifier in the storefront's display
// format: "#SW-" followed by the upper-cased base-36 unix milliseconds and
// four random base-36 characters. The random suffix keeps rapid successive
// orders within one millisecond from colliding.
func newOrderID(now time.Time) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	n := binary.BigEndian.Uint32(buf[:])

	var suffix [4]byte
	for i := range suffix {
		suffix[i] = orderIDAlphabet[n%36]
		n /= 36
	}

	var b strings.Builder
	b.WriteString("#SW-")
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	b.Write(suffix[:])
	return b.String()
}
