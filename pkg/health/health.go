// Package health provides Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in a single background goroutine; probe
// endpoints read the cached results so a slow dependency can never stall a
// probe request. A check flips to unhealthy only after three consecutive
// failures, avoiding flapping on transient errors.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when healthy.
type CheckFunc func(ctx context.Context) error

const failureThreshold = 3

// check holds one registered probe and its cached state.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	fails   int // consecutive failures; touched only by the run loop
	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.healthy.Store(true)
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Health instance. The service starts not ready; call
// SetReady(true) after initialization completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness check: is the process alive and
// functioning (goroutine counts, GC pauses).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(&h.liveness, name, timeout, fn)
}

// AddReadinessCheck registers a readiness check: can the service handle
// traffic right now (database reachable, caches warm).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(&h.readiness, name, timeout, fn)
}

func (h *Health) add(list *[]*check, name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	*list = append(*list, c)
}

// Start launches the background probe loop with the given interval. Each
// check also runs once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	checks := append(append([]*check(nil), h.liveness...), h.readiness...)

	go func() {
		defer close(h.done)

		for _, c := range checks {
			c.run(ctx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(ctx)
				}
			}
		}
	}()
}

// Stop terminates the probe loop and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady flips the overall readiness gate. Readiness requires both the gate
// and every readiness check to pass.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.RUnlock()

	respond(w, true, checks)
}

// ReadyEndpoint serves the readiness probe.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.RUnlock()

	respond(w, h.ready.Load(), checks)
}

func respond(w http.ResponseWriter, ok bool, checks []*check) {
	results := make(map[string]string, len(checks))
	for _, c := range checks {
		status := "ok"
		if !c.healthy.Load() {
			ok = false
			status = "failing"
			if p := c.lastErr.Load(); p != nil && *p != nil {
				status = (*p).Error()
			}
		}
		results[c.name] = status
	}

	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: status, Checks: results})
}
