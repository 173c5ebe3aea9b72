package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/swiftcart/storefront/internal/cart"
	"github.com/swiftcart/storefront/internal/coupon"
)

// cartResponse is the cart page payload: line items plus the active coupon.
type cartResponse struct {
	Items  []cart.LineItem `json:"items"`
	Coupon *coupon.Coupon  `json:"coupon"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, cartResponse{
		Items:  s.Cart.Items(),
		Coupon: s.Cart.ActiveCoupon(),
	})
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	s := h.sess(w, r)
	if err := s.Cart.AddItem(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, cartResponse{
		Items:  s.Cart.Items(),
		Coupon: s.Cart.ActiveCoupon(),
	})
}

type changeItemRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) changeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	var req changeItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	s := h.sess(w, r)
	s.Cart.ChangeQuantity(r.Context(), id, req.Delta)
	h.writeJSON(w, r, http.StatusOK, cartResponse{
		Items:  s.Cart.Items(),
		Coupon: s.Cart.ActiveCoupon(),
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	s := h.sess(w, r)
	s.Cart.RemoveItem(r.Context(), id)
	h.writeJSON(w, r, http.StatusOK, cartResponse{
		Items:  s.Cart.Items(),
		Coupon: s.Cart.ActiveCoupon(),
	})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	s := h.sess(w, r)
	c, err := s.Cart.ApplyCoupon(req.Code)
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			h.couponRejections.Add(r.Context(), 1)
		}
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, c)
}

func (h *Handler) clearCoupon(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	s.Cart.ClearCoupon()
	w.WriteHeader(http.StatusNoContent)
}

// totalsResponse pairs the computed breakdown with the shipping method it
// was computed for.
type totalsResponse struct {
	ShippingMethod cart.ShippingMethod `json:"shippingMethod"`
	cart.Totals
}

func (h *Handler) getTotals(w http.ResponseWriter, r *http.Request) {
	method := cart.ParseShippingMethod(r.URL.Query().Get("shipping"))
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, totalsResponse{
		ShippingMethod: method,
		Totals:         s.Cart.Totals(method),
	})
}
