// internal/app/realtime/relay/relay.go

// Package relay spreads persisted messages across stratachat nodes over
// NATS. Every node persists its own submissions and publishes them; the
// other nodes deliver them to their local room sessions without persisting
// again.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	subjectPrefix = "stratachat.room."
	// NodeHeader carries the id of the publishing node.
	NodeHeader = "Stratachat-Node"
)

// Subject is the NATS subject messages of channelID travel on.
func Subject(channelID string) string { return subjectPrefix + channelID }

// Broadcaster delivers an event to local room sessions.
type Broadcaster interface {
	Broadcast(roomID string, ev realtime.Event) int
}

// Connect dials the NATS servers in url (comma separated) and keeps
// reconnecting forever.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url missing")
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	return nats.Connect(url, opts...)
}

// Relay publishes local messages and delivers remote ones.
type Relay struct {
	nc     *nats.Conn
	nodeID string
	rooms  Broadcaster
	logger *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func New(nc *nats.Conn, nodeID string, rooms Broadcaster, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{nc: nc, nodeID: nodeID, rooms: rooms, logger: logger.Named("relay")}
}

// Publish sends m to the other nodes.
func (r *Relay) Publish(ctx context.Context, m models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(Subject(m.ChannelID))
	msg.Header.Set(NodeHeader, r.nodeID)
	msg.Data = data
	return r.nc.PublishMsg(msg)
}

// Start subscribes to every room subject. Calling Start twice is a no-op.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	sub, err := r.nc.Subscribe(subjectPrefix+"*", r.handle)
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	r.sub = sub
	r.logger.Info("relay subscribed", zap.String("node_id", r.nodeID))
	return nil
}

// Stop drops the subscription.
func (r *Relay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	err := r.sub.Unsubscribe()
	r.sub = nil
	return err
}

func (r *Relay) handle(msg *nats.Msg) {
	if msg.Header.Get(NodeHeader) == r.nodeID {
		return
	}
	var m models.Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		r.logger.Warn("relay decode failed", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if m.ChannelID == "" {
		m.ChannelID = strings.TrimPrefix(msg.Subject, subjectPrefix)
	}
	r.rooms.Broadcast(m.ChannelID, realtime.MessageEvent(m))
}
