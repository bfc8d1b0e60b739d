package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "x", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/groups", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)
	req := withTestUser(httptest.NewRequest("GET", "/groups", nil), "user")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	handler := sm.RequireRole("admin", "superadmin")(okHandler())

	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusOK},
		{"SuperAdmin", http.StatusOK},
		{"user", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users", nil)
			if tc.role != "" {
				req = withTestUser(req, tc.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
		})
	}
}

type fetcherFunc func(ctx context.Context, id string) *auth.SessionUser

func (f fetcherFunc) FetchUser(ctx context.Context, id string) *auth.SessionUser { return f(ctx, id) }

func TestSignIn_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetUserFetcher(fetcherFunc(func(_ context.Context, id string) *auth.SessionUser {
		if id != "u1" {
			return nil
		}
		return &auth.SessionUser{ID: id, Username: "alice", Role: "admin"}
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/session", nil)
	if err := sm.SignIn(rec, req, auth.SessionUser{ID: "u1"}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	next := httptest.NewRequest("GET", "/groups", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), next)

	if got == nil {
		t.Fatal("expected user loaded from session")
	}
	if got.Username != "alice" || got.Role != "admin" {
		t.Errorf("expected refreshed user, got %+v", got)
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Error("expected no user in context")
	}
}

// withTestUser injects a SessionUser the way LoadSessionUser does.
func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       "507f1f77bcf86cd799439011",
		Username: "tester",
		Role:     role,
	})
}
