package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "clinic",
			Audience:  jwt.ClaimStrings{"clinic-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"patient"},
	}
}

func runJWT(t *testing.T, cfg JWTConfig, authHeader string) (int, context.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()

	var seen context.Context
	handler := JWTMiddleware(cfg)(func(c echo.Context) error {
		seen = c.Request().Context()
		return c.NoContent(http.StatusOK)
	})

	err := handler(e.NewContext(req, rec))
	if err != nil {
		if httpErr, ok := err.(*echo.HTTPError); ok {
			return httpErr.Code, seen
		}
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Code, seen
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	cfg := JWTConfig{Issuer: "clinic", Audience: "clinic-api", SigningKey: testKey}
	token := signToken(t, validClaims(), testKey)

	code, ctx := runJWT(t, cfg, "Bearer "+token)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("user id = %q, want user-1", got)
	}
	roles := RolesFromContext(ctx)
	if len(roles) != 1 || roles[0] != "patient" {
		t.Errorf("roles = %v, want [patient]", roles)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	cfg := JWTConfig{Issuer: "clinic", Audience: "clinic-api", SigningKey: testKey}

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + signToken(t, validClaims(), []byte("other-key"))},
		{"expired", "Bearer " + signToken(t, expired, testKey)},
		{"wrong issuer", "Bearer " + signToken(t, wrongIssuer, testKey)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := runJWT(t, cfg, tt.header)
			if code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", code)
			}
		})
	}
}

func TestJWTMiddleware_RejectsNonHS256(t *testing.T) {
	cfg := JWTConfig{SigningKey: testKey}

	// alg=none style tokens must never validate.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	code, _ := runJWT(t, cfg, "Bearer "+s)
	if code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	var seen context.Context
	handler := DevAuthMiddleware()(func(c echo.Context) error {
		seen = c.Request().Context()
		return c.NoContent(http.StatusOK)
	})
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := UserIDFromContext(seen); got != "dev-user" {
		t.Errorf("user id = %q, want dev-user", got)
	}
	roles := RolesFromContext(seen)
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("roles = %v, want [admin]", roles)
	}
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	if UserIDFromContext(ctx) != "" {
		t.Error("expected empty user id")
	}
	if RolesFromContext(ctx) != nil {
		t.Error("expected nil roles")
	}
}
