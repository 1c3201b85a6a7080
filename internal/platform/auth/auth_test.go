package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func TestSignAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := SignToken(testSecret, userID, "patient", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() error: %v", err)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != "patient" {
		t.Errorf("expected role patient, got %s", claims.Role)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := SignToken(testSecret, uuid.New(), "patient", time.Hour)
	if _, err := ParseToken([]byte("other-secret"), token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, _ := SignToken(testSecret, uuid.New(), "patient", -time.Minute)
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, _ := SignToken(testSecret, userID, "center_admin", time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if UserIDFromContext(ctx) != userID {
			t.Error("expected user id in context")
		}
		if RoleFromContext(ctx) != "center_admin" {
			t.Errorf("expected role center_admin, got %s", RoleFromContext(ctx))
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := JWTMiddleware(testSecret)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return nil }
	err := JWTMiddleware(testSecret)(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	cases := []struct {
		role     string
		required []string
		allow    bool
	}{
		{"patient", []string{"patient"}, true},
		{"admin", []string{"center_admin"}, true}, // admin passes everything
		{"patient", []string{"center_admin"}, false},
		{"", []string{"patient"}, false},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), UserRoleKey, tc.role)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := RequireRole(tc.required...)(handler)(c)
		if tc.allow && err != nil {
			t.Errorf("role %q with required %v: unexpected error %v", tc.role, tc.required, err)
		}
		if !tc.allow && err == nil {
			t.Errorf("role %q with required %v: expected forbidden", tc.role, tc.required)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hash == "s3cret-pw" {
		t.Error("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret-pw") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected mismatch for wrong password")
	}
}
