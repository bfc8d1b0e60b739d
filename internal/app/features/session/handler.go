// internal/app/features/session/handler.go
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/store/audit"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/auditlog"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/ratelimit"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users      store.Users
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.SignIn
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler builds the session handler. auditLog may be nil.
func NewHandler(users store.Users, sessionMgr *auth.SessionManager, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, SessionMgr: sessionMgr, Limiter: ratelimit.NewSignIn(), Audit: auditLog, Log: logger}
}

type signInRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// dummyHash keeps the unknown-user path as slow as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("stratachat-dummy"), bcrypt.DefaultCost)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /session                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	const op = "session.signIn"
	var req signInRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	if err := h.Limiter.Check(r, req.Username); err != nil {
		h.Log.Warn("sign-in throttled",
			zap.String("ip", ratelimit.ClientIP(r)),
			zap.String("username", req.Username))
		h.Audit.SignInFailed(r, audit.EventSignInFailedRateLimit, "", req.Username, "rate limited")
		httpjson.Error(w, err)
		return
	}
	badCreds := apperr.Unauthorized(op, "invalid username or password")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	u, err := h.Users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		h.Audit.SignInFailed(r, audit.EventSignInFailedUnknownUser, "", req.Username, "unknown user")
		httpjson.Error(w, badCreds)
		return
	case err != nil:
		h.Log.Warn("sign-in lookup failed", zap.Error(err))
		httpjson.Error(w, apperr.Persistence(op, err))
		return
	}

	if u.PasswordHash == "" {
		h.Log.Info("sign-in rejected: no password credential", zap.String("user_id", u.ID))
		h.Audit.SignInFailed(r, audit.EventSignInFailedNoCredential, u.ID, req.Username, "no password credential")
		httpjson.Error(w, badCreds)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.Log.Info("sign-in rejected", zap.String("user_id", u.ID))
		h.Audit.SignInFailed(r, audit.EventSignInFailedWrongPass, u.ID, req.Username, "wrong password")
		httpjson.Error(w, badCreds)
		return
	}

	su := auth.SessionUser{ID: u.ID, Username: u.Username, Role: string(u.Role)}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.Log.Error("save session failed", zap.String("user_id", u.ID), zap.Error(err))
		httpjson.Error(w, apperr.Persistence(op, err))
		return
	}
	h.Limiter.Succeeded(req.Username)
	h.Audit.SignInSuccess(r, u.ID, u.Username)
	h.Log.Info("signed in", zap.String("user_id", u.ID))
	httpjson.OK(w, sessionResponse{ID: su.ID, Username: su.Username, Role: su.Role})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /session                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	var uid string
	if u, ok := auth.CurrentUser(r); ok {
		uid = u.ID
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("sign out: save session", zap.Error(err))
	}
	h.Audit.SignOut(r, uid)
	w.WriteHeader(http.StatusNoContent)
}

// ServeCurrent handles GET /session.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Error(w, apperr.Unauthorized("session.current", "not signed in"))
		return
	}
	httpjson.OK(w, sessionResponse{ID: u.ID, Username: u.Username, Role: u.Role})
}
