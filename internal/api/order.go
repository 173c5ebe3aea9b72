package api

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/swiftcart/storefront/internal/cart"
)

type placeOrderRequest struct {
	Shipping string       `json:"shipping"`
	Contact  cart.Contact `json:"contact"`
	Payment  string       `json:"payment"`
}

// orderResponse adds the loyalty points earned by the purchase to the order
// snapshot.
type orderResponse struct {
	cart.Order
	PointsEarned  int `json:"pointsEarned"`
	PointsBalance int `json:"pointsBalance"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	s := h.sess(w, r)
	o, err := s.Cart.PlaceOrder(r.Context(), cart.PlaceOrderRequest{
		Shipping: cart.ParseShippingMethod(req.Shipping),
		Contact:  req.Contact,
		Payment:  req.Payment,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	earned := s.Loyalty.Award(r.Context(), o.Totals.Total)

	h.ordersPlaced.Add(r.Context(), 1)
	trace.SpanFromContext(r.Context()).AddEvent("order placed",
		trace.WithAttributes(
			attribute.String("order.id", o.ID),
			attribute.String("order.total", o.Totals.Total.String()),
			attribute.Int("order.items", len(o.Items)),
		))

	h.writeJSON(w, r, http.StatusCreated, orderResponse{
		Order:         *o,
		PointsEarned:  earned,
		PointsBalance: s.Loyalty.Balance(),
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, s.Cart.Orders())
}
