// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down websocket sessions, the relay, and the backend
// connections, in that order.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Relay != nil {
			if err := rt.Relay.Stop(); err != nil {
				logger.Warn("relay unsubscribe failed", zap.Error(err))
			}
		}
		if rt.Chat != nil {
			logger.Info("closing websocket sessions", zap.Int("live", rt.Chat.Live()))
			if err := rt.Chat.CloseAll(ctx); err != nil {
				logger.Warn("websocket sessions did not close in time", zap.Error(err))
			}
		}
		if rt.Sweep != nil {
			rt.Sweep.Stop(ctx)
		}
	}
	return closeAll(ctx, deps, logger)
}

func closeAll(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	if deps.NATS != nil {
		deps.NATS.Close()
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
