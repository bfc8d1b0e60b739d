package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/stratachat/internal/app/store/audit"
	"github.com/dalemusser/stratachat/internal/app/system/auditlog"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (m *memSink) Log(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) all() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Event(nil), m.events...)
}

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	req := httptest.NewRequest("POST", "/session", nil)

	logger.Log(context.Background(), audit.Event{EventType: "test"})
	logger.SignInSuccess(req, "u1", "alice")
	logger.SignOut(req, "u1")

	called := false
	h := logger.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Error("expected a nil logger's middleware to pass through")
	}
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode     string
		wantDB   bool
		wantLogs bool
	}{
		{auditlog.ModeAll, true, true},
		{auditlog.ModeDB, true, false},
		{auditlog.ModeLog, false, true},
		{auditlog.ModeOff, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			sink := &memSink{}
			zl, logs := newObserved()
			l := auditlog.New(sink, zl, auditlog.Config{Auth: tt.mode, Admin: auditlog.ModeOff})

			l.SignInSuccess(httptest.NewRequest("POST", "/session", nil), "u1", "alice")

			if got := len(sink.all()) == 1; got != tt.wantDB {
				t.Errorf("stored = %v, want %v", got, tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len() == 1; got != tt.wantLogs {
				t.Errorf("logged = %v, want %v", got, tt.wantLogs)
			}
		})
	}
}

func TestLogger_Store_Failure_Is_Logged(t *testing.T) {
	sink := &memSink{err: errors.New("mongo down")}
	zl, logs := newObserved()
	l := auditlog.New(sink, zl, auditlog.Config{Auth: auditlog.ModeDB})

	l.SignOut(httptest.NewRequest("DELETE", "/session", nil), "u1")
	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected the store failure to be logged")
	}
}

func TestLogger_SignInFailed_Fields(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB})
	req := httptest.NewRequest("POST", "/session", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	l.SignInFailed(req, audit.EventSignInFailedWrongPass, "u1", "alice", "wrong password")

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Success || e.FailureReason != "wrong password" || e.UserID != "u1" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.IP != "203.0.113.5" {
		t.Errorf("expected forwarded ip, got %q", e.IP)
	}
	if e.Details["attempted_username"] != "alice" {
		t.Errorf("expected attempted username, got %v", e.Details)
	}
}

func newRouter(l *auditlog.Logger, status int) chi.Router {
	r := chi.NewRouter()
	r.Use(l.Middleware("/session"))
	groups := chi.NewRouter()
	groups.Post("/{id}/users/{userId}/ban", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) })
	groups.Get("/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Mount("/groups", groups)
	r.Post("/session", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

func TestMiddleware_Records_Mutations(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Admin: auditlog.ModeDB})
	router := newRouter(l, http.StatusNoContent)

	req := httptest.NewRequest("POST", "/groups/g1/users/u2/ban", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "u1", Username: "admin", Role: "user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != "POST /groups/{id}/users/{userId}/ban" {
		t.Errorf("unexpected event type %q", e.EventType)
	}
	if e.ActorID != "u1" || e.GroupID != "g1" || e.UserID != "u2" {
		t.Errorf("unexpected ids: actor=%q group=%q user=%q", e.ActorID, e.GroupID, e.UserID)
	}
	if !e.Success || e.Status != http.StatusNoContent {
		t.Errorf("expected success with 204, got %v %d", e.Success, e.Status)
	}
}

func TestMiddleware_Records_Refusals(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Admin: auditlog.ModeDB})
	router := newRouter(l, http.StatusForbidden)

	req := httptest.NewRequest("POST", "/groups/g1/users/u2/ban", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "u3", Username: "eve", Role: "user"})
	router.ServeHTTP(httptest.NewRecorder(), req)

	events := sink.all()
	if len(events) != 1 || events[0].Success || events[0].FailureReason != "Forbidden" {
		t.Errorf("expected one failed event, got %+v", events)
	}
}

func TestMiddleware_Skips(t *testing.T) {
	sink := &memSink{}
	l := auditlog.New(sink, zap.NewNop(), auditlog.Config{Admin: auditlog.ModeDB})
	router := newRouter(l, http.StatusNoContent)
	u := &auth.SessionUser{ID: "u1", Username: "admin", Role: "user"}

	cases := []*http.Request{
		auth.WithTestUser(httptest.NewRequest("GET", "/groups/g1", nil), u),
		auth.WithTestUser(httptest.NewRequest("POST", "/session", nil), u),
		httptest.NewRequest("POST", "/groups/g1/users/u2/ban", nil),
	}
	for _, req := range cases {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	if n := len(sink.all()); n != 0 {
		t.Errorf("expected reads, skipped paths and anonymous calls to be ignored, got %d events", n)
	}
}
