// internal/app/bootstrap/config.go
package bootstrap

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	messagestore "github.com/dalemusser/stratachat/internal/app/store/messages"
	"github.com/dalemusser/stratachat/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for stratachat.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATACHAT_MONGO_URI, STRATACHAT_NATS_URL, etc.
//   - Command-line flags: --mongo_uri, --nats_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_type", Default: StoreMongo, Desc: "Entity store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratachat", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "", Desc: "Session signing key; blank generates one per process (not allowed in prod)"},
	{Name: "session_name", Default: "stratachat-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Root superadmin bootstrap
	{Name: "root_username", Default: "root", Desc: "Username of the root superadmin (created or promoted on startup)"},
	{Name: "root_email", Default: "root@localhost", Desc: "Email of the root superadmin when it is created"},
	{Name: "root_password", Default: "", Desc: "Initial root password; blank generates one and logs it once"},

	// Presence bridge
	{Name: "redis_addr", Default: "", Desc: "Redis address for the presence bridge (blank disables)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "presence_heartbeat", Default: "15s", Desc: "Presence heartbeat and dead-node sweep interval"},

	// Cluster relay
	{Name: "nats_url", Default: "", Desc: "NATS URL for the cluster relay (blank disables)"},
	{Name: "node_id", Default: "", Desc: "Identifies this process on the relay (blank generates a uuid)"},

	// Websocket sessions
	{Name: "ws_send_queue", Default: 256, Desc: "Per-session outbound buffer; a full buffer drops messages"},
	{Name: "ws_read_limit", Default: 65536, Desc: "Maximum inbound websocket frame size in bytes"},
	{Name: "ws_ping_interval", Default: "30s", Desc: "Websocket keepalive ping interval"},

	{Name: "history_limit", Default: 50, Desc: "Default and maximum message history page size"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and fan-out persistence"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-document membership operations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, STRATACHAT_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STRATACHAT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreType:        strings.ToLower(strings.TrimSpace(appValues.String("store_type"))),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),

		AuditLogAuth:  strings.ToLower(appValues.String("audit_log_auth")),
		AuditLogAdmin: strings.ToLower(appValues.String("audit_log_admin")),

		RootUsername: appValues.String("root_username"),
		RootEmail:    appValues.String("root_email"),
		RootPassword: appValues.String("root_password"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		PresenceHeartbeat: appValues.Duration("presence_heartbeat", 15*time.Second),

		NATSURL: appValues.String("nats_url"),
		NodeID:  appValues.String("node_id"),

		WSSendQueue:    appValues.Int("ws_send_queue"),
		WSReadLimit:    int64(appValues.Int("ws_read_limit")),
		WSPingInterval: appValues.Duration("ws_ping_interval", 30*time.Second),

		HistoryLimit: appValues.Int("history_limit"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	if appCfg.NodeID == "" {
		appCfg.NodeID = uuid.NewString()
	}
	if appCfg.SessionKey == "" && coreCfg.Env != "prod" {
		appCfg.SessionKey = base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("no session_key configured; generated a per-process key, sessions will not survive a restart")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreType {
	case StoreMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required when store_type is %q", StoreMongo)
		}
	case StoreMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
	default:
		return fmt.Errorf("unknown store_type %q (want %q or %q)", appCfg.StoreType, StoreMongo, StoreMemory)
	}

	if appCfg.SessionKey == "" {
		return fmt.Errorf("session_key is required in %s", coreCfg.Env)
	}
	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch v {
		case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}
	if strings.TrimSpace(appCfg.RootUsername) == "" {
		return fmt.Errorf("root_username is required")
	}
	if appCfg.RedisAddr != "" && appCfg.PresenceHeartbeat <= 0 {
		return fmt.Errorf("presence_heartbeat must be positive when redis_addr is set")
	}
	if appCfg.WSSendQueue <= 0 {
		return fmt.Errorf("ws_send_queue must be positive, got %d", appCfg.WSSendQueue)
	}
	if appCfg.WSReadLimit <= 0 {
		return fmt.Errorf("ws_read_limit must be positive, got %d", appCfg.WSReadLimit)
	}
	if appCfg.HistoryLimit <= 0 || appCfg.HistoryLimit >= messagestore.MaxPage {
		return fmt.Errorf("history_limit must be between 1 and %d, got %d", messagestore.MaxPage-1, appCfg.HistoryLimit)
	}
	return nil
}
