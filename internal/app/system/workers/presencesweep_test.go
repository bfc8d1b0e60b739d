package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePresence struct {
	mu         sync.Mutex
	heartbeats int
	sweeps     int
	purged     bool
	ttl        time.Duration
	beatErr    error
}

func (f *fakePresence) Heartbeat(_ context.Context, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	f.ttl = ttl
	return f.beatErr
}

func (f *fakePresence) Sweep(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1, nil
}

func (f *fakePresence) Purge(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = true
	return 0, nil
}

func (f *fakePresence) counts() (int, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats, f.sweeps, f.purged
}

func TestPresenceSweep_Runs_And_Purges(t *testing.T) {
	p := &fakePresence{}
	w := NewPresenceSweep(p, zap.NewNop(), 10*time.Millisecond, time.Second)

	w.Start()
	if beats, _, _ := p.counts(); beats != 1 {
		t.Fatalf("expected a heartbeat on Start, got %d", beats)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, sweeps, _ := p.counts(); sweeps >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Stop(context.Background())
	if _, _, purged := p.counts(); !purged {
		t.Error("expected Stop to purge this node's entries")
	}
	if p.ttl != time.Second {
		t.Errorf("expected ttl 1s, got %v", p.ttl)
	}
}

func TestPresenceSweep_Raises_Short_TTL(t *testing.T) {
	w := NewPresenceSweep(&fakePresence{}, zap.NewNop(), time.Minute, time.Second)
	if w.ttl != 3*time.Minute {
		t.Errorf("expected ttl raised to 3m, got %v", w.ttl)
	}
}

func TestPresenceSweep_Skips_Sweep_When_Heartbeat_Fails(t *testing.T) {
	p := &fakePresence{beatErr: errors.New("redis down")}
	w := NewPresenceSweep(p, zap.NewNop(), time.Hour, time.Hour)

	w.tick()
	if beats, sweeps, _ := p.counts(); beats != 1 || sweeps != 0 {
		t.Errorf("expected 1 heartbeat and no sweep, got %d and %d", beats, sweeps)
	}
}
