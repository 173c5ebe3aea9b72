package api

import (
	"net/http"

	"github.com/swiftcart/storefront/internal/loyalty"
	"github.com/swiftcart/storefront/internal/session"
	"github.com/swiftcart/storefront/internal/wishlist"
)

// toggleResponse reports the new membership state after a toggle.
type toggleResponse struct {
	Added bool            `json:"added"`
	Items []wishlist.Item `json:"items"`
}

func (h *Handler) toggleList(w http.ResponseWriter, r *http.Request, pick func(*session.Session) *wishlist.List) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	list := pick(h.sess(w, r))
	added, err := list.Toggle(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toggleResponse{Added: added, Items: list.Items()})
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, s.Wishlist.Items())
}

func (h *Handler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	h.toggleList(w, r, func(s *session.Session) *wishlist.List { return s.Wishlist })
}

func (h *Handler) getCompare(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, s.Compare.Items())
}

func (h *Handler) toggleCompare(w http.ResponseWriter, r *http.Request) {
	h.toggleList(w, r, func(s *session.Session) *wishlist.List { return s.Compare })
}

func (h *Handler) getRecent(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, s.Recents.Items())
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	s := h.sess(w, r)
	h.writeJSON(w, r, http.StatusOK, s.Reviews.List(id))
}

type addReviewRequest struct {
	Author string `json:"author"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	var req addReviewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	// Reviews require an existing product.
	if _, err := h.catalog.GetByID(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	s := h.sess(w, r)
	author := req.Author
	if author == "" {
		if u := s.Auth.Current(); u != nil {
			author = u.FirstName
		}
	}
	rev, err := s.Reviews.Add(r.Context(), id, author, req.Rating, req.Text)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, rev)
}

type loyaltyResponse struct {
	Points        int          `json:"points"`
	Tier          loyalty.Tier `json:"tier"`
	NextThreshold int          `json:"nextThreshold"`
}

func (h *Handler) getLoyalty(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	points := s.Loyalty.Balance()
	h.writeJSON(w, r, http.StatusOK, loyaltyResponse{
		Points:        points,
		Tier:          loyalty.TierFor(points),
		NextThreshold: loyalty.NextThreshold(points),
	})
}
