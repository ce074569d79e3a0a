package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-booking-agent/internal/identity"
)

func signedUserToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// serve runs the middleware and returns the status and the user id seen downstream.
func serve(t *testing.T, secret string, setup func(r *http.Request)) (int, string) {
	t.Helper()
	var seen string
	handler := UserIdentity(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/agent/messages", nil)
	setup(req)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code, seen
}

func TestUserIdentity(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		setup      func(r *http.Request)
		wantStatus int
		wantUser   string
	}{
		{"dev header", "", func(r *http.Request) { r.Header.Set(UserIDHeader, "u-1") }, http.StatusOK, "u-1"},
		{"dev anonymous", "", func(r *http.Request) {}, http.StatusOK, ""},
		{"missing token", "secret", func(r *http.Request) { r.Header.Set(UserIDHeader, "u-1") }, http.StatusUnauthorized, ""},
		{"wrong secret", "secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signedUserToken(t, "other", "u-1"))
		}, http.StatusUnauthorized, ""},
		{"no subject", "secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signedUserToken(t, "secret", ""))
		}, http.StatusUnauthorized, ""},
		{"valid token", "secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signedUserToken(t, "secret", "patient@example.com"))
		}, http.StatusOK, "patient@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, user := serve(t, tt.secret, tt.setup)
			if status != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, status)
			}
			if user != tt.wantUser {
				t.Fatalf("expected user %q, got %q", tt.wantUser, user)
			}
		})
	}
}
