// Package health serves Kubernetes-style liveness and readiness probes.
// Checks run on demand when a probe endpoint is hit, each under its own
// timeout. Readiness additionally gates on an explicit ready flag so the
// server can drain before shutdown.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health aggregates liveness and readiness checks.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

func New() *Health {
	return &Health{}
}

// SetReady flips the readiness gate. The server sets it false at the start
// of graceful shutdown so load balancers stop routing new traffic.
func (h *Health) SetReady(v bool) {
	h.ready.Store(v)
}

// IsReady reports the readiness gate, ignoring check results.
func (h *Health) IsReady() bool {
	return h.ready.Load()
}

func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
	h.mu.Unlock()
}

func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
	h.mu.Unlock()
}

// LiveEndpoint handles GET /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()
	h.respond(w, r, h.runChecks(r.Context(), checks), true)
}

// ReadyEndpoint handles GET /readyz. A false ready flag fails the probe
// before any check runs.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.respond(w, r, map[string]string{"ready": "shutting down"}, false)
		return
	}
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()
	failures := h.runChecks(r.Context(), checks)
	h.respond(w, r, failures, len(failures) == 0)
}

// runChecks executes each check under its timeout and collects failures.
func (h *Health) runChecks(ctx context.Context, checks []check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(cctx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

func (h *Health) respond(w http.ResponseWriter, _ *http.Request, failures map[string]string, ok bool) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if len(failures) > 0 {
		body["failures"] = failures
	}
	if !ok || len(failures) > 0 {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
