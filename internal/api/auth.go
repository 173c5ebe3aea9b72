package api

import (
	"net/http"

	"github.com/swiftcart/storefront/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	s := h.sess(w, r)
	u, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, u)
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Confirm   string `json:"confirm"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	s := h.sess(w, r)
	u, err := s.Auth.Register(r.Context(), auth.RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Confirm:   req.Confirm,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, u)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	s.Auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	s := h.sess(w, r)
	u := s.Auth.Current()
	if u == nil {
		h.writeError(w, r, http.StatusUnauthorized, "not signed in")
		return
	}
	h.writeJSON(w, r, http.StatusOK, u)
}
