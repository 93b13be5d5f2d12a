package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2025, 7, 3, 12, 0, 0, 0, time.UTC)
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	lim.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := lim.take("k"); !ok {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	ok, retryAfter := lim.take("k")
	if ok {
		t.Fatal("expected rejection once burst is spent")
	}
	if retryAfter < 1 {
		t.Errorf("retryAfter = %d, want >= 1", retryAfter)
	}

	// One second later a single token has refilled.
	now = now.Add(time.Second)
	if ok, _ := lim.take("k"); !ok {
		t.Error("expected token after refill interval")
	}
	if ok, _ := lim.take("k"); ok {
		t.Error("expected only one token to refill")
	}
}

func TestLimiter_RefillCapsAtBurst(t *testing.T) {
	now := time.Date(2025, 7, 3, 12, 0, 0, 0, time.UTC)
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 3})
	lim.now = func() time.Time { return now }

	lim.take("k")
	now = now.Add(time.Hour)

	granted := 0
	for i := 0; i < 10; i++ {
		if ok, _ := lim.take("k"); ok {
			granted++
		}
	}
	if granted != 3 {
		t.Errorf("granted %d after long idle, want burst size 3", granted)
	}
}

func TestLimiter_ZeroRate(t *testing.T) {
	lim := newLimiter(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})

	if ok, _ := lim.take("k"); !ok {
		t.Fatal("expected initial token")
	}
	ok, retryAfter := lim.take("k")
	if ok {
		t.Fatal("expected rejection with empty bucket")
	}
	if retryAfter != 1 {
		t.Errorf("retryAfter = %d, want 1 when rate is zero", retryAfter)
	}
}

func TestRateLimit_WithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 10", i+1, got)
		}
	}
}

func TestRateLimit_Exceeded(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("first request: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining 0")
	}
	if v, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || v < 1 {
		t.Errorf("Retry-After = %q, want integer >= 1", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	asUser := func(uid string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, uid))
		return e.NewContext(req, httptest.NewRecorder())
	}

	if err := handler(asUser("user-a")); err != nil {
		t.Fatalf("user-a first request: %v", err)
	}
	if err := handler(asUser("user-a")); err == nil {
		t.Fatal("user-a second request: expected rate limit error")
	}
	// A different user has an untouched bucket.
	if err := handler(asUser("user-b")); err != nil {
		t.Fatalf("user-b first request: %v", err)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 {
		t.Errorf("RequestsPerSecond = %f, want 100", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize != 200 {
		t.Errorf("BurstSize = %d, want 200", cfg.BurstSize)
	}
}
