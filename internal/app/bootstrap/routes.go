// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	channelsfeature "github.com/dalemusser/stratachat/internal/app/features/channels"
	chatfeature "github.com/dalemusser/stratachat/internal/app/features/chat"
	groupsfeature "github.com/dalemusser/stratachat/internal/app/features/groups"
	healthfeature "github.com/dalemusser/stratachat/internal/app/features/health"
	sessionfeature "github.com/dalemusser/stratachat/internal/app/features/session"
	usersfeature "github.com/dalemusser/stratachat/internal/app/features/users"
	"github.com/dalemusser/stratachat/internal/app/store/audit"
	userstore "github.com/dalemusser/stratachat/internal/app/store/users"
	"github.com/dalemusser/stratachat/internal/app/system/auditlog"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every feature router is mounted behind the session
// middleware, so auth.CurrentUser(r) is available everywhere.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Engine == nil {
		return nil, errors.New("build handler: Startup has not run")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so role changes apply immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.Users))

	// Audit events go to Mongo when it is the store; memory mode logs only.
	var auditSink auditlog.Sink
	if deps.MongoDatabase != nil {
		auditSink = audit.New(deps.MongoDatabase)
	}
	auditLog := auditlog.New(auditSink, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)
	// Sign-in and sign-out are recorded by the session handler itself.
	r.Use(auditLog.Middleware("/session"))

	// Health reports transaction support only for the Mongo runner.
	var txnSupport healthfeature.TxnSupport
	if m, ok := deps.Txn.(*txn.Mongo); ok {
		txnSupport = m
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, txnSupport, deps.Redis, deps.NATS, rt.Rooms, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	sessionHandler := sessionfeature.NewHandler(deps.Users, sessionMgr, auditLog, logger)
	r.Mount("/session", sessionfeature.Routes(sessionHandler))

	usersHandler := usersfeature.NewHandler(deps.Users, rt.Engine, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	groupsHandler := groupsfeature.NewHandler(rt.Engine, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	channelsHandler := channelsfeature.NewHandler(rt.Engine, rt.Fanout, logger)
	r.Mount("/channels", channelsfeature.Routes(channelsHandler, sessionMgr))

	r.Mount("/ws", chatfeature.Routes(rt.Chat, sessionMgr))

	return r, nil
}
