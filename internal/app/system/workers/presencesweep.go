// internal/app/system/workers/presencesweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Presence is the part of the Redis presence bridge the sweeper drives.
type Presence interface {
	Heartbeat(ctx context.Context, ttl time.Duration) error
	Sweep(ctx context.Context) (int, error)
	Purge(ctx context.Context) (int, error)
}

// PresenceSweep is a background worker that keeps this node's presence
// heartbeat alive and drops the room entries of nodes that stopped.
type PresenceSweep struct {
	presence Presence
	log      *zap.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPresenceSweep creates the worker. A node is considered dead after ttl
// without a heartbeat; ttl below three intervals is raised to that.
func NewPresenceSweep(p Presence, logger *zap.Logger, interval, ttl time.Duration) *PresenceSweep {
	if ttl < 3*interval {
		ttl = 3 * interval
	}
	return &PresenceSweep{
		presence: p,
		log:      logger,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start sends the first heartbeat and begins the loop.
func (w *PresenceSweep) Start() {
	w.tick()
	w.wg.Add(1)
	go w.run()
	w.log.Info("presence sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl))
}

// Stop ends the loop and removes this node's entries.
func (w *PresenceSweep) Stop(ctx context.Context) {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()

	n, err := w.presence.Purge(ctx)
	if err != nil {
		w.log.Warn("presence purge failed", zap.Error(err))
	}
	w.log.Info("presence sweep worker stopped", zap.Int("purged", n))
}

func (w *PresenceSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *PresenceSweep) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	if err := w.presence.Heartbeat(ctx, w.ttl); err != nil {
		w.log.Warn("presence heartbeat failed", zap.Error(err))
		return
	}
	n, err := w.presence.Sweep(ctx)
	if err != nil {
		w.log.Error("presence sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("dropped stale presence entries", zap.Int("count", n))
	}
}
