package membership

import (
	"context"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
)

// CreateGroup creates a group whose sole admin is founderID and links it
// into the founder's group_ids.
func (e *Engine) CreateGroup(ctx context.Context, name, description, founderID string) (models.Group, error) {
	const op = "groups.create"
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, apperr.Invalid(op, "group name is required")
	}
	founder, err := e.loadUser(ctx, op, founderID)
	if err != nil {
		return models.Group{}, err
	}

	var created models.Group
	err = e.run(ctx, op,
		step{
			name: "insert group",
			do: func(ctx context.Context) error {
				g, err := e.groups.Create(ctx, models.Group{
					Name:        name,
					Description: htmlsanitize.PlainText(description),
					Admins:      []string{founder.ID},
				})
				created = g
				return err
			},
			undo: func(ctx context.Context) error { return e.groups.Delete(ctx, created.ID) },
		},
		step{
			name: "link founder",
			do: func(ctx context.Context) error {
				return e.users.AddToSet(ctx, founder.ID, store.FieldGroupIDs, created.ID)
			},
			undo: func(ctx context.Context) error {
				return e.users.RemoveFromSet(ctx, founder.ID, store.FieldGroupIDs, created.ID)
			},
		},
	)
	if err != nil {
		return models.Group{}, err
	}
	e.logger.Info("group created",
		zap.String("group_id", created.ID),
		zap.String("founder_id", founder.ID))
	return created, nil
}

// UpdateGroup changes a group's name and description. A blank name keeps
// the current one.
func (e *Engine) UpdateGroup(ctx context.Context, groupID, name, description string) (models.Group, error) {
	const op = "groups.update"
	if err := e.groups.UpdateInfo(ctx, groupID, name, htmlsanitize.PlainText(description)); err != nil {
		return models.Group{}, classify(op, "group", err)
	}
	return e.loadGroup(ctx, op, groupID)
}

// DeleteGroup removes a group. Its channels are logically deleted, every
// user reference is pulled, then the group document goes. The cascade is
// not compensated: a failure part way leaves the later steps undone and is
// reported.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) error {
	const op = "groups.delete"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	if _, err := e.loadGroup(ctx, op, groupID); err != nil {
		return err
	}

	var channels, users int64
	err := e.run(ctx, op,
		step{name: "delete channels", do: func(ctx context.Context) (err error) {
			channels, err = e.channels.DeleteByGroup(ctx, groupID)
			return err
		}},
		step{name: "pull user references", do: func(ctx context.Context) (err error) {
			users, err = e.users.PullGroupRefs(ctx, groupID)
			return err
		}},
		step{name: "delete group", do: func(ctx context.Context) error {
			return e.groups.Delete(ctx, groupID)
		}},
	)
	if err != nil {
		return err
	}
	e.logger.Info("group deleted",
		zap.String("group_id", groupID),
		zap.Int64("channels", channels),
		zap.Int64("users_updated", users))
	return nil
}
