package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithRoles(roles []string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	return req.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		has      []string
		wantCode int
	}{
		{"exact match", []string{"doctor"}, []string{"doctor"}, http.StatusOK},
		{"one of several", []string{"doctor", "registrar"}, []string{"registrar"}, http.StatusOK},
		{"admin bypass", []string{"doctor"}, []string{"admin"}, http.StatusOK},
		{"wrong role", []string{"doctor"}, []string{"patient"}, http.StatusForbidden},
		{"no roles", []string{"doctor"}, nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(requestWithRoles(tt.has), rec)

			handler := RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			err := handler(c)

			code := rec.Code
			if httpErr, ok := err.(*echo.HTTPError); ok {
				code = httpErr.Code
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}
