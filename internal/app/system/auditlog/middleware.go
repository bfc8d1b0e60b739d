// internal/app/system/auditlog/middleware.go
package auditlog

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store/audit"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Path parameters that name the affected group and user.
var (
	groupParams = []string{"id", "groupId"}
	userParams  = []string{"userId"}
)

// Middleware records one admin event for every mutating request by a
// signed-in user. The event type is the method plus the matched route
// pattern; path parameters go into Details. Paths under any of skip are
// ignored.
func (l *Logger) Middleware(skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || !mutating(r.Method) || skipped(r.URL.Path, skip) {
				next.ServeHTTP(w, r)
				return
			}
			u, ok := auth.CurrentUser(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			e := requestEvent(r, audit.CategoryAdmin, r.Method+" "+routePattern(r))
			e.ActorID = u.ID
			e.Status = status
			e.Success = status < http.StatusBadRequest
			if !e.Success {
				e.FailureReason = http.StatusText(status)
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
				e.Details = make(map[string]string, len(rctx.URLParams.Keys))
				for i, k := range rctx.URLParams.Keys {
					if k == "*" || i >= len(rctx.URLParams.Values) {
						continue
					}
					e.Details[k] = rctx.URLParams.Values[i]
				}
				e.GroupID = firstParam(e.Details, groupParams)
				e.UserID = firstParam(e.Details, userParams)
			}
			l.Log(r.Context(), e)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if p := rctx.RoutePattern(); p != "" {
		return strings.ReplaceAll(p, "/*/", "/")
	}
	return r.URL.Path
}

func firstParam(params map[string]string, keys []string) string {
	for _, k := range keys {
		if v := params[k]; v != "" {
			return v
		}
	}
	return ""
}
