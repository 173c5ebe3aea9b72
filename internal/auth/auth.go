// Package auth is the storefront's local account stub. It keeps a signed-in
// user per session without verifying anything beyond input shape; it is
// deliberately not a security boundary.
package auth

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/storage"
)

// Validation errors for sign-in and registration input.
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNameRequired     = errors.New("first and last name are required")
)

const (
	minLoginPassword    = 6
	minRegisterPassword = 8
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is the locally stored account.
type User struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Service manages the session's signed-in user, persisted under "user".
type Service struct {
	store storage.Store
	log   *zap.Logger

	mu   sync.Mutex
	user *User
}

// NewService returns a signed-out auth service.
func NewService(store storage.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Load rehydrates a previously persisted user, if any.
func (s *Service) Load(ctx context.Context) error {
	data, err := s.store.Get(ctx, "user")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "load user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Unmarshal(data, &s.user)
}

// Login validates the credentials' shape and signs in a user derived from
// the email. No password is checked against anything or stored.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minLoginPassword {
		return nil, ErrPasswordTooShort
	}

	local, _, _ := strings.Cut(email, "@")
	u := &User{FirstName: local, LastName: "User", Email: email}
	s.setUser(ctx, u)
	return u, nil
}

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Confirm   string
}

// Register validates the form and signs in the new user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return nil, ErrNameRequired
	}
	email := strings.TrimSpace(req.Email)
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minRegisterPassword {
		return nil, ErrPasswordTooShort
	}
	if req.Password != req.Confirm {
		return nil, ErrPasswordMismatch
	}

	u := &User{FirstName: first, LastName: last, Email: email}
	s.setUser(ctx, u)
	return u, nil
}

// Current returns the signed-in user, or nil.
func (s *Service) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Logout signs the user out and removes the persisted record.
func (s *Service) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	if err := s.store.Delete(ctx, "user"); err != nil {
		s.log.Warn("user removal failed", zap.Error(err))
	}
	s.mu.Unlock()
}

func (s *Service) setUser(ctx context.Context, u *User) {
	s.mu.Lock()
	s.user = u
	data, err := json.Marshal(u)
	if err == nil {
		err = s.store.Set(ctx, "user", data)
	}
	if err != nil {
		s.log.Warn("user persistence failed", zap.Error(err))
	}
	s.mu.Unlock()
}
