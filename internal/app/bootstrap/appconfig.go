// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
)

// Store backends selectable through store_type.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles the
// framework-level settings (ports, TLS, logging, CORS).
type AppConfig struct {
	// Entity store
	StoreType        string // "mongo" or "memory"
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies; blank generates a per-process key outside prod
	SessionName   string // Cookie name for sessions (default: stratachat-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth  string
	AuditLogAdmin string

	// Root superadmin bootstrap
	RootUsername string
	RootEmail    string
	RootPassword string // blank generates a random one, logged once

	// Presence bridge (Redis); blank address disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PresenceHeartbeat is how often this node refreshes its presence and
	// sweeps entries of dead nodes
	PresenceHeartbeat time.Duration

	// Cluster relay (NATS); blank URL disables it
	NATSURL string
	NodeID  string

	// Websocket sessions
	WSSendQueue    int
	WSReadLimit    int64
	WSPingInterval time.Duration

	HistoryLimit int

	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

// Timeouts converts the configured handler deadlines.
func (c AppConfig) Timeouts() timeouts.Config {
	return timeouts.Config{
		Short:  c.TimeoutShort,
		Medium: c.TimeoutMedium,
		Long:   c.TimeoutLong,
	}
}
