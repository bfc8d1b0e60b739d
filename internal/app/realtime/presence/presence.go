// internal/app/realtime/presence/presence.go

// Package presence forwards room membership changes to the peer-signaling
// collaborator. The core only emits the two hooks; it does not interpret
// call state.
package presence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bridge receives room join and leave notices.
type Bridge interface {
	OnRoomJoined(roomID, sessionID string)
	OnRoomLeft(roomID, sessionID string)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) OnRoomJoined(string, string) {}
func (Nop) OnRoomLeft(string, string)   {}

const (
	keyPrefix  = "stratachat:presence:room:"
	nodePrefix = "stratachat:presence:node:"
	// NodesKey is the set of node ids that have registered presence.
	NodesKey = "stratachat:presence:nodes"
	// EventsChannel is the pub/sub channel the signaling collaborator
	// subscribes to.
	EventsChannel = "stratachat:presence:events"
)

// RoomKey is the Redis set holding the session ids of a room.
func RoomKey(roomID string) string { return keyPrefix + roomID }

// aliveKey expires when a node stops sending heartbeats.
func aliveKey(nodeID string) string { return nodePrefix + nodeID + ":alive" }

// entriesKey is the set of "room\x00session" pairs a node added.
func entriesKey(nodeID string) string { return nodePrefix + nodeID + ":entries" }

func entry(roomID, sessionID string) string { return roomID + "\x00" + sessionID }

// Notice is published on EventsChannel for every hook call.
type Notice struct {
	Event     string    `json:"event"` // "joined" or "left"
	RoomID    string    `json:"roomId"`
	SessionID string    `json:"sessionId"`
	NodeID    string    `json:"nodeId,omitempty"`
	At        time.Time `json:"at"`
}

// RedisConfig addresses the Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Redis keeps one set per room and publishes a Notice for each change.
// Failures are logged; the hooks never block a join or leave.
type Redis struct {
	rdb    *redis.Client
	nodeID string
	logger *zap.Logger
}

func NewRedis(rdb *redis.Client, nodeID string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, nodeID: nodeID, logger: logger.Named("presence")}
}

func (p *Redis) OnRoomJoined(roomID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, RoomKey(roomID), sessionID)
		pipe.SAdd(ctx, entriesKey(p.nodeID), entry(roomID, sessionID))
		return nil
	})
	if err != nil {
		p.logger.Warn("presence add failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	p.publish(ctx, "joined", roomID, sessionID)
}

func (p *Redis) OnRoomLeft(roomID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, RoomKey(roomID), sessionID)
		pipe.SRem(ctx, entriesKey(p.nodeID), entry(roomID, sessionID))
		return nil
	})
	if err != nil {
		p.logger.Warn("presence remove failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	p.publish(ctx, "left", roomID, sessionID)
}

func (p *Redis) publish(ctx context.Context, event, roomID, sessionID string) {
	payload, err := json.Marshal(Notice{
		Event:     event,
		RoomID:    roomID,
		SessionID: sessionID,
		NodeID:    p.nodeID,
		At:        time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("presence encode failed", zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		p.logger.Warn("presence publish failed", zap.String("room_id", roomID), zap.Error(err))
	}
}

// Members returns the session ids Redis holds for roomID across all nodes.
func (p *Redis) Members(ctx context.Context, roomID string) ([]string, error) {
	return p.rdb.SMembers(ctx, RoomKey(roomID)).Result()
}

// Heartbeat registers the node and keeps it alive for ttl.
func (p *Redis) Heartbeat(ctx context.Context, ttl time.Duration) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, NodesKey, p.nodeID)
		pipe.Set(ctx, aliveKey(p.nodeID), time.Now().UTC().Format(time.RFC3339), ttl)
		return nil
	})
	return err
}

// Sweep removes the room entries of every registered node whose heartbeat
// has expired and returns how many sessions it dropped.
func (p *Redis) Sweep(ctx context.Context) (int, error) {
	nodes, err := p.rdb.SMembers(ctx, NodesKey).Result()
	if err != nil {
		return 0, err
	}
	dropped := 0
	for _, node := range nodes {
		if node == p.nodeID {
			continue
		}
		alive, err := p.rdb.Exists(ctx, aliveKey(node)).Result()
		if err != nil {
			return dropped, err
		}
		if alive > 0 {
			continue
		}
		n, err := p.drop(ctx, node)
		dropped += n
		if err != nil {
			return dropped, err
		}
		p.logger.Info("swept presence of dead node", zap.String("node_id", node), zap.Int("sessions", n))
	}
	return dropped, nil
}

// Purge removes this node's room entries. Called on shutdown.
func (p *Redis) Purge(ctx context.Context) (int, error) {
	return p.drop(ctx, p.nodeID)
}

func (p *Redis) drop(ctx context.Context, node string) (int, error) {
	entries, err := p.rdb.SMembers(ctx, entriesKey(node)).Result()
	if err != nil {
		return 0, err
	}
	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			roomID, sessionID, ok := strings.Cut(e, "\x00")
			if !ok {
				continue
			}
			pipe.SRem(ctx, RoomKey(roomID), sessionID)
		}
		pipe.Del(ctx, entriesKey(node), aliveKey(node))
		pipe.SRem(ctx, NodesKey, node)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
