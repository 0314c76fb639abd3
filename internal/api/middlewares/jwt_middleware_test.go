package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func serve(token string) *httptest.ResponseRecorder {
	h := JWTMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := OwnerIDFromContext(r.Context())
		w.Write([]byte(id))
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/questions/custom", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"user_id": "u-42",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	rec := serve(token)
	if rec.Code != http.StatusOK || rec.Body.String() != "u-42" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	cases := map[string]string{
		"missing":     "",
		"garbage":     "not-a-token",
		"wrong key":   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": "u"}),
		"expired":     sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no user id":  sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u"}),
		"none method": sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": "u"}),
	}
	for name, token := range cases {
		if rec := serve(token); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}
