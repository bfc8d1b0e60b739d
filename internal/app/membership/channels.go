package membership

import (
	"context"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ChannelInput carries the fields of a new or updated channel. A nil
// Members leaves the restriction unchanged on update; an empty one clears
// it.
type ChannelInput struct {
	ID          string
	Name        *string
	Description *string
	Members     *[]string
}

func (e *Engine) checkRestriction(op string, g models.Group, members *[]string) error {
	if members == nil {
		return nil
	}
	outsiders := lo.Filter(*members, func(id string, _ int) bool { return !g.IsMember(id) })
	if len(outsiders) > 0 {
		return apperr.Invalid(op, "restricted members must belong to the group: %s", strings.Join(outsiders, ", "))
	}
	return nil
}

// CreateChannel creates a channel inside groupID and links it into the
// group's channel_ids.
func (e *Engine) CreateChannel(ctx context.Context, groupID string, in ChannelInput) (models.Channel, error) {
	const op = "channels.create"
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.Channel{}, apperr.Invalid(op, "channel name is required")
	}
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return models.Channel{}, err
	}
	if err := e.checkRestriction(op, g, in.Members); err != nil {
		return models.Channel{}, err
	}

	ch := models.Channel{ID: in.ID, GroupID: groupID, Name: *in.Name}
	if in.Description != nil {
		ch.Description = htmlsanitize.PlainText(*in.Description)
	}
	if in.Members != nil {
		ch.Members = lo.Uniq(*in.Members)
	}

	var created models.Channel
	err = e.run(ctx, op,
		step{
			name: "insert channel",
			do: func(ctx context.Context) (err error) {
				created, err = e.channels.Create(ctx, ch)
				return err
			},
			undo: func(ctx context.Context) error { return e.channels.Delete(ctx, created.ID) },
		},
		step{
			name: "link channel to group",
			do: func(ctx context.Context) error {
				return e.groups.AddToSet(ctx, groupID, store.FieldChannelIDs, created.ID)
			},
			undo: func(ctx context.Context) error {
				return e.groups.RemoveFromSet(ctx, groupID, store.FieldChannelIDs, created.ID)
			},
		},
	)
	if err != nil {
		return models.Channel{}, err
	}
	e.logger.Info("channel created", zap.String("group_id", groupID), zap.String("channel_id", created.ID))
	return created, nil
}

// LinkChannel adds an existing channel of groupID to its channel_ids. The
// channel's owning group is immutable, so linking a channel of another
// group is refused.
func (e *Engine) LinkChannel(ctx context.Context, groupID, channelID string) error {
	const op = "channels.link"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	if _, err := e.loadGroup(ctx, op, groupID); err != nil {
		return err
	}
	ch, err := e.channels.GetByID(ctx, channelID)
	if err != nil {
		return classify(op, "channel", err)
	}
	if ch.GroupID != groupID {
		return apperr.InvalidTransition(op, "channel belongs to another group")
	}
	if err := e.groups.AddToSet(ctx, groupID, store.FieldChannelIDs, channelID); err != nil {
		return classify(op, "group", err)
	}
	return nil
}

// UnlinkChannel removes channelID from the group's channel_ids. The channel
// document is kept and can be linked again.
func (e *Engine) UnlinkChannel(ctx context.Context, groupID, channelID string) error {
	const op = "channels.unlink"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	if !g.HasChannel(channelID) {
		return apperr.NotFound(op, "channel is not linked to this group")
	}
	if err := e.groups.RemoveFromSet(ctx, groupID, store.FieldChannelIDs, channelID); err != nil {
		return classify(op, "group", err)
	}
	return nil
}

// ListChannels returns the live channels linked to groupID.
func (e *Engine) ListChannels(ctx context.Context, groupID string) ([]models.Channel, error) {
	const op = "channels.list"
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return nil, err
	}
	all, err := e.channels.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, classify(op, "channels", err)
	}
	return lo.Filter(all, func(c models.Channel, _ int) bool { return g.HasChannel(c.ID) }), nil
}

// GetChannel returns channelID if it is live and linked to groupID.
func (e *Engine) GetChannel(ctx context.Context, groupID, channelID string) (models.Channel, error) {
	const op = "channels.get"
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return models.Channel{}, err
	}
	return e.linkedChannel(ctx, op, g, channelID)
}

func (e *Engine) linkedChannel(ctx context.Context, op string, g models.Group, channelID string) (models.Channel, error) {
	ch, err := e.channels.GetByID(ctx, channelID)
	if err != nil {
		return models.Channel{}, classify(op, "channel", err)
	}
	if ch.GroupID != g.ID || !g.HasChannel(channelID) {
		return models.Channel{}, apperr.NotFound(op, "channel: not found")
	}
	return ch, nil
}

// UpdateChannel changes the name, description or restricted subset.
func (e *Engine) UpdateChannel(ctx context.Context, groupID, channelID string, in ChannelInput) (models.Channel, error) {
	const op = "channels.update"
	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return models.Channel{}, err
	}
	if _, err := e.linkedChannel(ctx, op, g, channelID); err != nil {
		return models.Channel{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return models.Channel{}, apperr.Invalid(op, "channel name cannot be blank")
	}
	if err := e.checkRestriction(op, g, in.Members); err != nil {
		return models.Channel{}, err
	}

	upd := store.ChannelUpdate{Name: in.Name, Members: in.Members}
	if in.Description != nil {
		d := htmlsanitize.PlainText(*in.Description)
		upd.Description = &d
	}
	if in.Members != nil {
		m := lo.Uniq(*in.Members)
		upd.Members = &m
	}
	if err := e.channels.UpdateInfo(ctx, channelID, upd); err != nil {
		return models.Channel{}, classify(op, "channel", err)
	}
	ch, err := e.channels.GetByID(ctx, channelID)
	if err != nil {
		return models.Channel{}, classify(op, "channel", err)
	}
	return ch, nil
}

// DeleteChannel unlinks the channel and logically deletes it. Messages stay
// stored but are no longer reachable through the channel.
func (e *Engine) DeleteChannel(ctx context.Context, groupID, channelID string) error {
	const op = "channels.delete"
	unlock := e.locks.Lock(groupID)
	defer unlock()

	g, err := e.loadGroup(ctx, op, groupID)
	if err != nil {
		return err
	}
	if _, err := e.linkedChannel(ctx, op, g, channelID); err != nil {
		return err
	}
	err = e.run(ctx, op,
		step{
			name: "unlink channel",
			do: func(ctx context.Context) error {
				return e.groups.RemoveFromSet(ctx, groupID, store.FieldChannelIDs, channelID)
			},
			undo: func(ctx context.Context) error {
				return e.groups.AddToSet(ctx, groupID, store.FieldChannelIDs, channelID)
			},
		},
		step{
			name: "delete channel",
			do:   func(ctx context.Context) error { return e.channels.Delete(ctx, channelID) },
			undo: func(ctx context.Context) error { return e.channels.Restore(ctx, channelID) },
		},
	)
	if err != nil {
		return err
	}
	e.logger.Info("channel deleted", zap.String("group_id", groupID), zap.String("channel_id", channelID))
	return nil
}

// CanAccessChannel returns the channel when userID may join it: the user is
// a member or admin of the owning group and, for a restricted channel,
// listed in its subset. Group admins are never excluded by the subset.
func (e *Engine) CanAccessChannel(ctx context.Context, channelID, userID string) (models.Channel, error) {
	const op = "channels.access"
	ch, err := e.channels.GetByID(ctx, channelID)
	if err != nil {
		return models.Channel{}, classify(op, "channel", err)
	}
	g, err := e.loadGroup(ctx, op, ch.GroupID)
	if err != nil {
		return models.Channel{}, err
	}
	if !g.HasChannel(channelID) {
		return models.Channel{}, apperr.NotFound(op, "channel: not found")
	}
	switch g.TierOf(userID) {
	case models.TierAdmin:
		return ch, nil
	case models.TierMember:
		if ch.Allows(userID) {
			return ch, nil
		}
		return models.Channel{}, apperr.Forbidden(op, "channel is restricted")
	}
	return models.Channel{}, apperr.Forbidden(op, "not a member of the channel's group")
}
