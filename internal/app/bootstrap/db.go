// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	channelstore "github.com/dalemusser/stratachat/internal/app/store/channels"
	groupstore "github.com/dalemusser/stratachat/internal/app/store/groups"
	"github.com/dalemusser/stratachat/internal/app/store/memstore"
	messagestore "github.com/dalemusser/stratachat/internal/app/store/messages"
	userstore "github.com/dalemusser/stratachat/internal/app/store/users"
	"github.com/dalemusser/stratachat/internal/app/realtime/presence"
	"github.com/dalemusser/stratachat/internal/app/realtime/relay"
	"github.com/dalemusser/stratachat/internal/app/system/indexes"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the entity store and the optional Redis and NATS
// backends. Anything configured but unreachable aborts startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(appCfg.Timeouts())
	deps := DBDeps{Runtime: &Runtime{}}

	switch appCfg.StoreType {
	case StoreMemory:
		mem := memstore.New()
		deps.Users, deps.Groups, deps.Channels, deps.Messages = mem.Users, mem.Groups, mem.Channels, mem.Messages
		deps.Txn = txn.Direct{}
		logger.Info("entity store: memory")
	default:
		client, err := connectMongo(ctx, appCfg)
		if err != nil {
			logger.Error("MongoDB connect failed", zap.Error(err))
			return DBDeps{}, err
		}
		db := client.Database(appCfg.MongoDatabase)
		deps.MongoClient, deps.MongoDatabase = client, db
		deps.Users = userstore.New(db)
		deps.Groups = groupstore.New(db)
		deps.Channels = channelstore.New(db)
		deps.Messages = messagestore.New(db)
		deps.Txn = txn.NewMongo(client, logger)
		logger.Info("entity store: mongo", zap.String("database", appCfg.MongoDatabase))
	}

	if appCfg.RedisAddr != "" {
		rdb, err := presence.Connect(ctx, presence.RedisConfig{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err != nil {
			logger.Error("Redis connect failed", zap.String("addr", appCfg.RedisAddr), zap.Error(err))
			closeAll(ctx, deps, logger)
			return DBDeps{}, err
		}
		deps.Redis = rdb
		logger.Info("presence bridge: redis", zap.String("addr", appCfg.RedisAddr))
	}

	if appCfg.NATSURL != "" {
		nc, err := relay.Connect(appCfg.NATSURL, "stratachat-"+appCfg.NodeID, logger)
		if err != nil {
			logger.Error("NATS connect failed", zap.String("url", appCfg.NATSURL), zap.Error(err))
			closeAll(ctx, deps, logger)
			return DBDeps{}, err
		}
		deps.NATS = nc
		logger.Info("cluster relay: nats", zap.String("url", nc.ConnectedUrlRedacted()), zap.String("node_id", appCfg.NodeID))
	}

	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, timeouts.Medium())
	defer pcancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureSchema reconciles the Mongo indexes. Memory mode has none.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	return indexes.EnsureAll(ictx, deps.MongoDatabase, logger)
}
