// internal/app/membership/engine.go

// Package membership enforces the per-group membership tiers, the global
// role ladder and the referential links between users, groups and
// channels.
//
// The store only guarantees atomicity per document. Every operation that
// touches two documents runs as a saga: ordered steps, each with a
// compensation that is applied in reverse when a later step fails. When the
// txn runner provides a real transaction the compensations are skipped and
// the abort undoes the work instead.
//
// Compound read-decide-write operations on one group are serialized inside
// the process by a per-group lock.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/keyedlock"
	"github.com/dalemusser/stratachat/internal/app/system/txn"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
)

// Engine is the membership state machine.
type Engine struct {
	users    store.Users
	groups   store.Groups
	channels store.Channels
	tx       txn.Runner
	rootID   string
	locks    *keyedlock.Map
	logger   *zap.Logger
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Users    store.Users
	Groups   store.Groups
	Channels store.Channels
	// Tx defaults to txn.Direct.
	Tx txn.Runner
	// RootID is the bootstrap superadmin that succeeds a departing sole
	// admin.
	RootID string
	Logger *zap.Logger
}

// New builds an Engine.
func New(d Deps) *Engine {
	if d.Tx == nil {
		d.Tx = txn.Direct{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Engine{
		users:    d.Users,
		groups:   d.Groups,
		channels: d.Channels,
		tx:       d.Tx,
		rootID:   d.RootID,
		locks:    keyedlock.New(),
		logger:   d.Logger.Named("membership"),
	}
}

// RootID returns the id of the root superadmin.
func (e *Engine) RootID() string { return e.rootID }

/*─────────────────────────────────────────────────────────────────────────────*
| Saga                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// run executes steps in order inside the txn runner. On failure the
// completed steps are compensated in reverse unless a transaction is active.
// The returned error carries the failing step's classification; failed
// compensations are joined into it.
func (e *Engine) run(ctx context.Context, op string, steps ...step) error {
	return e.tx.Run(ctx, func(ctx context.Context) error {
		done := make([]step, 0, len(steps))
		for _, s := range steps {
			err := s.do(ctx)
			if err == nil {
				done = append(done, s)
				continue
			}

			err = classify(op, s.name, err)
			e.logger.Warn("membership step failed",
				zap.String("op", op),
				zap.String("step", s.name),
				zap.Int("completed", len(done)),
				zap.Error(err))
			if txn.Active(ctx) {
				return err
			}

			var undoErrs []error
			for i := len(done) - 1; i >= 0; i-- {
				c := done[i]
				if c.undo == nil {
					continue
				}
				if uerr := c.undo(ctx); uerr != nil {
					e.logger.Error("compensation failed",
						zap.String("op", op),
						zap.String("step", c.name),
						zap.NamedError("cause", err),
						zap.Error(uerr))
					undoErrs = append(undoErrs, fmt.Errorf("undo %s: %w", c.name, uerr))
					continue
				}
				e.logger.Warn("compensated step",
					zap.String("op", op),
					zap.String("step", c.name))
			}
			if len(undoErrs) > 0 {
				return apperr.Persistence(op, errors.Join(append([]error{err}, undoErrs...)...))
			}
			return err
		}
		return nil
	})
}

// classify maps store sentinels onto the error taxonomy.
func classify(op, what string, err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(op, "%s: not found", what)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(op, "%s: already exists", what)
	}
	return apperr.Persistence(op, fmt.Errorf("%s: %w", what, err))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loads                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (e *Engine) loadGroup(ctx context.Context, op, groupID string) (models.Group, error) {
	g, err := e.groups.GetByID(ctx, groupID)
	if err != nil {
		return models.Group{}, classify(op, "group", err)
	}
	return g, nil
}

func (e *Engine) loadUser(ctx context.Context, op, userID string) (models.User, error) {
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, classify(op, "user", err)
	}
	return u, nil
}

// GetGroup returns one group.
func (e *Engine) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	return e.loadGroup(ctx, "groups.get", groupID)
}

// ListGroups returns every group.
func (e *Engine) ListGroups(ctx context.Context) ([]models.Group, error) {
	gs, err := e.groups.List(ctx)
	if err != nil {
		return nil, classify("groups.list", "groups", err)
	}
	return gs, nil
}

// TierOf returns the tier userID holds in groupID.
func (e *Engine) TierOf(ctx context.Context, groupID, userID string) (models.Tier, error) {
	g, err := e.loadGroup(ctx, "groups.tier", groupID)
	if err != nil {
		return models.TierNone, err
	}
	return g.TierOf(userID), nil
}

func (e *Engine) logDone(op, groupID, userID string) {
	e.logger.Info("membership changed",
		zap.String("op", op),
		zap.String("group_id", groupID),
		zap.String("user_id", userID))
}
