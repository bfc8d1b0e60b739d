package membership

import (
	"context"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
)

// PromoteUser moves userID one step up the global role ladder.
func (e *Engine) PromoteUser(ctx context.Context, userID string) (models.User, error) {
	const op = "users.promote"
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return models.User{}, err
	}
	next, ok := u.Role.Next()
	if !ok {
		return models.User{}, apperr.InvalidTransition(op, "%s is the highest role", u.Role)
	}
	return e.setRole(ctx, op, u, next)
}

// DemoteUser moves userID one step down. The root superadmin cannot be
// demoted.
func (e *Engine) DemoteUser(ctx context.Context, userID string) (models.User, error) {
	const op = "users.demote"
	if userID == e.rootID {
		return models.User{}, apperr.InvalidTransition(op, "the root superadmin cannot be demoted")
	}
	u, err := e.loadUser(ctx, op, userID)
	if err != nil {
		return models.User{}, err
	}
	prev, ok := u.Role.Prev()
	if !ok {
		return models.User{}, apperr.InvalidTransition(op, "%s is the lowest role", u.Role)
	}
	return e.setRole(ctx, op, u, prev)
}

func (e *Engine) setRole(ctx context.Context, op string, u models.User, role models.RoleTier) (models.User, error) {
	if err := e.users.SetRole(ctx, u.ID, role); err != nil {
		return models.User{}, classify(op, "user", err)
	}
	e.logger.Info("role changed",
		zap.String("user_id", u.ID),
		zap.String("from", string(u.Role)),
		zap.String("to", string(role)))
	u.Role = role
	return u, nil
}
