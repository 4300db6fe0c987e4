package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/hl7engine/internal/platform/auth"
)

func rateLimited(cfg RateLimitConfig) echo.HandlerFunc {
	return RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func call(h echo.HandlerFunc, remoteAddr, subject string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.RemoteAddr = remoteAddr
	if subject != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), subject, nil))
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_RequestsWithinBurst(t *testing.T) {
	h := rateLimited(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})
	for i := 0; i < 5; i++ {
		rec, err := call(h, "10.0.0.1:1234", "")
		if err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit 10, got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	h := rateLimited(RateLimitConfig{RequestsPerSecond: 0.5, BurstSize: 2})
	for i := 0; i < 2; i++ {
		if _, err := call(h, "10.0.0.1:1234", ""); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	rec, err := call(h, "10.0.0.1:1234", "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining 0")
	}
}

func TestRateLimit_PerKeyIsolation(t *testing.T) {
	h := rateLimited(RateLimitConfig{RequestsPerSecond: 0.1, BurstSize: 1})
	if _, err := call(h, "10.0.0.1:1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := call(h, "10.0.0.1:1", ""); err == nil {
		t.Fatal("expected second request from the same IP to be limited")
	}
	if _, err := call(h, "10.0.0.2:1", ""); err != nil {
		t.Errorf("other IP should have its own limiter: %v", err)
	}
	// Authenticated callers are keyed by subject, not address.
	if _, err := call(h, "10.0.0.1:1", "lab-feed"); err != nil {
		t.Errorf("subject should have its own limiter: %v", err)
	}
}

func TestRateLimit_ZeroRateDisables(t *testing.T) {
	h := rateLimited(RateLimitConfig{})
	for i := 0; i < 50; i++ {
		if _, err := call(h, "10.0.0.1:1", ""); err != nil {
			t.Fatalf("request %d limited with zero rate: %v", i+1, err)
		}
	}
}

func TestLimiterStore_DropsIdleKeys(t *testing.T) {
	s := newLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.get("a")
	s.get("b")
	if s.size() != 2 {
		t.Fatalf("expected 2 limiters, got %d", s.size())
	}
	now = now.Add(2 * time.Minute)
	s.get("c")
	if s.size() != 1 {
		t.Errorf("expected idle limiters to be dropped, got %d", s.size())
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
