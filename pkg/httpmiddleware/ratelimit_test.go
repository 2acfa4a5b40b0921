package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	remaining, _, allowed := rl.allow("a", now)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	remaining, _, allowed = rl.allow("a", now.Add(time.Second))
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	_, resetAt, allowed := rl.allow("a", now.Add(2*time.Second))
	assert.False(t, allowed)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	// Other keys have their own budget.
	_, _, allowed = rl.allow("b", now.Add(2*time.Second))
	assert.True(t, allowed)

	// A fresh window resets the count.
	remaining, _, allowed = rl.allow("a", now.Add(time.Minute))
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	rl.allow("stale", now)
	rl.allow("fresh", now.Add(90*time.Second))

	rl.cleanup(now.Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.windows, "stale")
	assert.Contains(t, rl.windows, "fresh")
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Max:     2,
		Window:  time.Minute,
		KeyFunc: func(*http.Request) string { return "fixed" },
	})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	rec := do()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
		want  string
	}{
		{
			name:  "remote addr",
			setup: func(r *http.Request) { r.RemoteAddr = "10.0.0.1:4242" },
			want:  "10.0.0.1",
		},
		{
			name: "x-forwarded-for single",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7")
			},
			want: "203.0.113.7",
		},
		{
			name: "x-forwarded-for chain uses first hop",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			},
			want: "203.0.113.7",
		},
		{
			name: "x-real-ip fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Real-IP", "198.51.100.3")
			},
			want: "198.51.100.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
