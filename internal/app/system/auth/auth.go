// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// SessionUser is the signed-in caller injected into r.Context().
type SessionUser struct {
	ID       string
	Username string
	Role     string
}

// UserFetcher loads the current state of a user. LoadSessionUser calls it on
// every request so role changes apply immediately; nil means the user no
// longer exists and the session is treated as signed out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager owns the cookie store and the session middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	logger  *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager. In production
// (secure=true) cookies are Secure + SameSite=None; over plain http in dev
// they are SameSite=Lax.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "stratachat-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// SetUserFetcher installs the per-request user refresh.
func (m *SessionManager) SetUserFetcher(f UserFetcher) { m.fetcher = f }

// SignIn records u in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the session's user into the request context.
// Requests without a valid session pass through unchanged.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		isAuth, _ := sess.Values[isAuthKey].(bool)
		id, _ := sess.Values[userIDKey].(string)
		if !isAuth || id == "" {
			next.ServeHTTP(w, r)
			return
		}

		u := &SessionUser{ID: id}
		if m.fetcher != nil {
			u = m.fetcher.FetchUser(r.Context(), id)
			if u == nil {
				m.logger.Debug("session user no longer exists", zap.String("user_id", id))
				next.ServeHTTP(w, r)
				return
			}
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn rejects requests without a user in context with 401.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Error(w, apperr.Unauthorized("auth", "sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers that are not signed in (401) or whose role is
// not in allowed (403). Roles compare case-insensitively.
func (m *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpjson.Error(w, apperr.Unauthorized("auth", "sign in required"))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				httpjson.Error(w, apperr.Forbidden("auth", "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Context helpers                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser returns r carrying u as the signed-in user. For tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
