// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	chatfeature "github.com/dalemusser/stratachat/internal/app/features/chat"
	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/realtime/relay"
	"github.com/dalemusser/stratachat/internal/app/realtime/rooms"
	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/workers"
	"github.com/dalemusser/stratachat/internal/app/system/txn"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// MongoClient and MongoDatabase are nil in memory mode; Redis and NATS are
// nil when their address is not configured.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Users    store.Users
	Groups   store.Groups
	Channels store.Channels
	Messages store.Messages
	Txn      txn.Runner

	Redis *redis.Client
	NATS  *nats.Conn

	// Runtime is filled by Startup. WAFFLE passes DBDeps by value, so the
	// pointer is what carries the components to BuildHandler and Shutdown.
	Runtime *Runtime
}

// Runtime holds the components built at Startup.
type Runtime struct {
	RootID string
	Engine *membership.Engine
	Rooms  *rooms.Manager
	Fanout *fanout.Service
	Relay  *relay.Relay
	Chat   *chatfeature.Handler
	Sweep  *workers.PresenceSweep
}
