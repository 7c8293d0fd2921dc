package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leavedesk/internal/domain/auth"
)

const testSecret = "test-secret"

func identityProbe(t *testing.T) (http.Handler, *auth.UserContext, *bool) {
	t.Helper()
	var captured auth.UserContext
	var present bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, present = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return Auth(testSecret)(handler), &captured, &present
}

func TestAuthValidToken(t *testing.T) {
	handler, user, present := identityProbe(t)

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", Role: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !*present {
		t.Fatal("expected user in context")
	}
	if user.UserID != "u1" || user.Role != auth.RoleEmployee {
		t.Fatalf("unexpected user context: %+v", *user)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	handler, _, present := identityProbe(t)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if *present {
		t.Fatal("expected no user without a token")
	}
}

func TestAuthBadSignature(t *testing.T) {
	handler, _, present := identityProbe(t)

	token, err := auth.GenerateToken("other-secret", auth.Claims{UserID: "u1", Role: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if *present {
		t.Fatal("expected forged token to be ignored")
	}
}

func TestAuthPendingTwoFactorIgnored(t *testing.T) {
	handler, _, present := identityProbe(t)

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", Role: auth.RoleEmployee, TwoFactorPending: true}, time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if *present {
		t.Fatal("expected pending two-factor token to carry no identity")
	}
}
