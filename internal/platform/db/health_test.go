package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func runHealth(t *testing.T, p Pinger) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)
	if err := HealthHandler(p)(c); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		code   int
		status string
	}{
		{"disabled", nil, http.StatusOK, "disabled"},
		{"healthy", fakePinger{}, http.StatusOK, "healthy"},
		{"unhealthy", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := runHealth(t, tt.pinger)
			if code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
			if body["status"] != tt.status {
				t.Errorf("expected status %q, got %v", tt.status, body["status"])
			}
		})
	}
}

func TestNewPool_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewPool(ctx, PoolConfig{}); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewPool(ctx, PoolConfig{URL: "://bad"}); err == nil {
		t.Error("expected error for unparsable url")
	}
	if _, err := NewPool(ctx, PoolConfig{URL: "postgres://localhost/hl7", MaxConns: 2, MinConns: 5}); err == nil {
		t.Error("expected error when min exceeds max")
	}
}
