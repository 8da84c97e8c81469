package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "manager-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protectedHandler(secret string) http.Handler {
	return ManagerJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ManagerClaimsFromContext(r.Context()); !ok {
			http.Error(w, "claims missing", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestManagerJWTAcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	protectedHandler("s3cret").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestManagerJWTRejectsMissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	protectedHandler("s3cret").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestManagerJWTRejectsWrongSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	protectedHandler("s3cret").ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestManagerJWTRejectsExpiredToken(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	protectedHandler("s3cret").ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestManagerJWTDisabledWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "anything", jwt.SigningMethodHS256))
	rec := httptest.NewRecorder()
	protectedHandler("").ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when no secret is configured", rec.Code)
	}
}
