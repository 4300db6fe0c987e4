package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		want    int
	}{
		{"matching role", []string{RoleViewer}, http.StatusOK},
		{"second allowed role", []string{RoleIntegration}, http.StatusOK},
		{"admin passes", []string{RoleAdmin}, http.StatusOK},
		{"other role", []string{"billing"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithIdentity(req.Context(), "u", tt.granted))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRole(RoleViewer, RoleIntegration)(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})(c)

			if tt.want == http.StatusOK {
				if err != nil || rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got err=%v code=%d", err, rec.Code)
				}
				return
			}
			assertStatus(t, err, tt.want)
		})
	}
}

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{
		"/health":       true,
		"/metrics":      true,
		"/messages":     false,
		"/messages/:id": false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetPath(path)
		if got := AuthSkipper(c); got != want {
			t.Errorf("AuthSkipper(%s) = %v, want %v", path, got, want)
		}
		if IsPublicPath(path) != want {
			t.Errorf("IsPublicPath(%s) mismatch", path)
		}
	}
}
