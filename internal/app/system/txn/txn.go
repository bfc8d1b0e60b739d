// internal/app/system/txn/txn.go

// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one, and directly otherwise.
//
// Standalone servers reject transactions. The first such rejection is
// remembered and later calls skip straight to direct execution; callers
// that must stay consistent without a transaction compensate themselves
// and can ask Active whether that is needed.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes fn, possibly inside a transaction.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type activeKey struct{}

// Active reports whether ctx belongs to a running transaction.
func Active(ctx context.Context) bool {
	v, _ := ctx.Value(activeKey{}).(bool)
	return v
}

// Direct runs fn without a transaction.
type Direct struct{}

func (Direct) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Mongo is a Runner backed by client sessions.
type Mongo struct {
	client      *mongo.Client
	logger      *zap.Logger
	unsupported atomic.Bool
}

// NewMongo returns a Runner for client.
func NewMongo(client *mongo.Client, logger *zap.Logger) *Mongo {
	return &Mongo{client: client, logger: logger}
}

// Supported reports whether transactions are still being attempted.
func (m *Mongo) Supported() bool { return !m.unsupported.Load() }

func (m *Mongo) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if Active(ctx) || m.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			m.markUnsupported(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(context.WithValue(sc, activeKey{}, true))
	})
	if err != nil && IsNotSupported(err) {
		m.markUnsupported(err)
		return fn(ctx)
	}
	return err
}

func (m *Mongo) markUnsupported(err error) {
	if m.unsupported.CompareAndSwap(false, true) && m.logger != nil {
		m.logger.Warn("transactions not supported; running multi-document writes directly", zap.Error(err))
	}
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, no sessions).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	// A message must name transactions or sessions plus one more keyword.
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "session"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	if hits == 0 {
		return false
	}
	for _, kw := range []string{"replica set", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
