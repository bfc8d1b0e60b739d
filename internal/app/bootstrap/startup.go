// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	chatfeature "github.com/dalemusser/stratachat/internal/app/features/chat"
	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/realtime/presence"
	"github.com/dalemusser/stratachat/internal/app/realtime/relay"
	"github.com/dalemusser/stratachat/internal/app/realtime/rooms"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It installs the root superadmin and builds the membership engine and the
// real-time layer (room registry, fan-out, presence bridge, cluster relay).
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime == nil {
		return errors.New("startup: DBDeps.Runtime is nil")
	}

	rctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	rootID, err := ensureRootSuperAdmin(rctx, deps.Users, appCfg, logger)
	cancel()
	if err != nil {
		logger.Error("root superadmin bootstrap failed", zap.Error(err))
		return err
	}

	engine := membership.New(membership.Deps{
		Users:    deps.Users,
		Groups:   deps.Groups,
		Channels: deps.Channels,
		Tx:       deps.Txn,
		RootID:   rootID,
		Logger:   logger,
	})

	var bridge rooms.Presence = presence.Nop{}
	var sweep *workers.PresenceSweep
	if deps.Redis != nil {
		rp := presence.NewRedis(deps.Redis, appCfg.NodeID, logger)
		bridge = rp
		sweep = workers.NewPresenceSweep(rp, logger, appCfg.PresenceHeartbeat, 0)
	}
	mgr := rooms.New(bridge, logger)

	opts := []fanout.Option{fanout.WithHistoryLimit(appCfg.HistoryLimit)}
	var rl *relay.Relay
	if deps.NATS != nil {
		rl = relay.New(deps.NATS, appCfg.NodeID, mgr, logger)
		if err := rl.Start(); err != nil {
			logger.Error("relay subscribe failed", zap.Error(err))
			return err
		}
		opts = append(opts, fanout.WithRelay(rl))
	}
	fan := fanout.New(deps.Messages, mgr, logger, opts...)
	mgr.SetAnnouncer(fan)

	chat := chatfeature.NewHandler(engine, fan, mgr, chatfeature.Config{
		SendQueue:    appCfg.WSSendQueue,
		ReadLimit:    appCfg.WSReadLimit,
		PingInterval: appCfg.WSPingInterval,
	}, logger)

	if sweep != nil {
		sweep.Start()
	}

	*deps.Runtime = Runtime{
		RootID: rootID,
		Engine: engine,
		Rooms:  mgr,
		Fanout: fan,
		Relay:  rl,
		Chat:   chat,
		Sweep:  sweep,
	}

	logger.Info("stratachat started",
		zap.String("env", coreCfg.Env),
		zap.String("node_id", appCfg.NodeID),
		zap.String("store", appCfg.StoreType),
		zap.Bool("presence", deps.Redis != nil),
		zap.Bool("relay", rl != nil))
	return nil
}
