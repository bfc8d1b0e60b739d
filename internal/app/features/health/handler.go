package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// RoomStats reports the live real-time load.
type RoomStats interface {
	Stats() (rooms, sessions int)
}

// TxnSupport reports whether multi-document transactions are in use.
type TxnSupport interface {
	Supported() bool
}

// Handler holds dependencies needed for health checks. Client is nil when
// the memory store is in use; Redis and NATS are nil when disabled.
type Handler struct {
	Client *mongo.Client
	Txn    TxnSupport
	Redis  *redis.Client
	NATS   *nats.Conn
	Rooms  RoomStats
	Log    *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(client *mongo.Client, txn TxnSupport, rdb *redis.Client, nc *nats.Conn, rooms RoomStats, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Txn:    txn,
		Redis:  rdb,
		NATS:   nc,
		Rooms:  rooms,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Transactions bool   `json:"transactions"`
	Presence     string `json:"presence"`
	Relay        string `json:"relay"`
	Rooms        int    `json:"rooms"`
	Sessions     int    `json:"sessions"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "presence":"redis", "relay":"nats", ... }
//
// Presence or relay trouble reports "degraded" with 200; real-time delivery
// on this node still works. On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "memory",
		Presence: "off",
		Relay:    "off",
	}
	if h.Rooms != nil {
		resp.Rooms, resp.Sessions = h.Rooms.Stats()
	}
	if h.Txn != nil {
		resp.Transactions = h.Txn.Supported()
	}

	// Check database
	if h.Client != nil {
		if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Error("health-check: mongo ping failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			resp.Status = "error"
			resp.Database = "disconnected"
			resp.Message = "Database unavailable"
			resp.Error = err.Error()
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		resp.Database = "connected"
	}

	if h.Redis != nil {
		resp.Presence = "redis"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Presence = "unreachable"
		}
	}
	if h.NATS != nil {
		resp.Relay = "nats"
		if !h.NATS.IsConnected() {
			resp.Status = "degraded"
			resp.Relay = h.NATS.Status().String()
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
