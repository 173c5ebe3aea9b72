// Package api exposes the storefront over HTTP as a JSON API. Handlers are
// thin: they resolve the caller's session, delegate to the domain packages,
// and map domain errors to status codes.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/auth"
	"github.com/swiftcart/storefront/internal/cart"
	"github.com/swiftcart/storefront/internal/coupon"
	"github.com/swiftcart/storefront/internal/product"
	"github.com/swiftcart/storefront/internal/review"
	"github.com/swiftcart/storefront/internal/session"
	"github.com/swiftcart/storefront/internal/wishlist"
)

// sessionHeader carries the client's session id. Responses echo the id the
// server actually used, so a client without one learns its new id.
const sessionHeader = "X-Session-ID"

// Handler serves the storefront API.
type Handler struct {
	sessions *session.Manager
	catalog  product.Catalog
	log      *zap.Logger

	ordersPlaced     metric.Int64Counter
	couponRejections metric.Int64Counter
}

// NewHandler wires the API over a session manager and catalog. The meter
// provider feeds the request-independent business counters.
func NewHandler(sessions *session.Manager, catalog product.Catalog, log *zap.Logger, mp metric.MeterProvider) (*Handler, error) {
	meter := mp.Meter("storefront.api")

	ordersPlaced, err := meter.Int64Counter("storefront.orders_placed",
		metric.WithDescription("Orders placed successfully"))
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	couponRejections, err := meter.Int64Counter("storefront.coupon_rejections",
		metric.WithDescription("Coupon codes rejected as invalid"))
	if err != nil {
		return nil, errors.Wrap(err, "coupon counter")
	}

	return &Handler{
		sessions:         sessions,
		catalog:          catalog,
		log:              log,
		ordersPlaced:     ordersPlaced,
		couponRejections: couponRejections,
	}, nil
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/categories", h.listCategories)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/products/{id}/reviews", h.listReviews)
	mux.HandleFunc("POST /api/products/{id}/reviews", h.addReview)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.changeCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/coupon", h.applyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.clearCoupon)
	mux.HandleFunc("GET /api/cart/totals", h.getTotals)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)

	mux.HandleFunc("GET /api/wishlist", h.getWishlist)
	mux.HandleFunc("POST /api/wishlist/{id}", h.toggleWishlist)
	mux.HandleFunc("GET /api/compare", h.getCompare)
	mux.HandleFunc("POST /api/compare/{id}", h.toggleCompare)
	mux.HandleFunc("GET /api/recent", h.getRecent)

	mux.HandleFunc("GET /api/loyalty", h.getLoyalty)

	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.HandleFunc("GET /api/auth/me", h.currentUser)
}

// sess resolves the request's session and stamps its id on the response.
func (h *Handler) sess(w http.ResponseWriter, r *http.Request) *session.Session {
	s := h.sessions.Get(r.Context(), r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, s.ID)
	return s
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("response encoding failed", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound), errors.Is(err, cart.ErrUnknownProduct):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrTextTooShort),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrNameRequired):
		h.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, cart.ErrEmptyCart):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, wishlist.ErrFull):
		h.writeError(w, r, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON request body into dst, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request")
	}
	return nil
}
