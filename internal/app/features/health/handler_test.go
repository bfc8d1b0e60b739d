package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratachat/internal/app/features/health"
	"github.com/dalemusser/stratachat/internal/app/system/txn"
	"github.com/dalemusser/stratachat/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fixedStats struct{ rooms, sessions int }

func (f fixedStats) Stats() (int, int) { return f.rooms, f.sessions }

type response struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Transactions bool   `json:"transactions"`
	Presence     string `json:"presence"`
	Relay        string `json:"relay"`
	Rooms        int    `json:"rooms"`
	Sessions     int    `json:"sessions"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var body response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, body
}

func TestServe_MemoryMode(t *testing.T) {
	h := health.NewHandler(nil, nil, nil, nil, fixedStats{rooms: 2, sessions: 3}, zap.NewNop())

	rec, body := serve(t, h)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body.Status != "ok" || body.Database != "memory" {
		t.Errorf("unexpected body %+v", body)
	}
	if body.Rooms != 2 || body.Sessions != 3 {
		t.Errorf("expected room stats 2/3, got %d/%d", body.Rooms, body.Sessions)
	}
	if body.Presence != "off" || body.Relay != "off" {
		t.Errorf("expected presence and relay off, got %q/%q", body.Presence, body.Relay)
	}
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := db.Client()
	h := health.NewHandler(client, txn.NewMongo(client, zap.NewNop()), nil, nil, nil, zap.NewNop())

	rec, body := serve(t, h)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body.Status != "ok" || body.Database != "connected" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestServe_RedisUnreachable_Degraded(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	h := health.NewHandler(nil, nil, rdb, nil, nil, zap.NewNop())

	rec, body := serve(t, h)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body.Status != "degraded" || body.Presence != "unreachable" {
		t.Errorf("unexpected body %+v", body)
	}
}
