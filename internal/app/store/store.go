// internal/app/store/store.go

// Package store defines the entity store contract shared by the Mongo
// stores and the in-memory store.
//
// Every method is atomic for the single document it touches. Nothing here
// spans documents: a change to a Group and the matching change to a User are
// two independent calls, and the second can fail after the first succeeded.
package store

import (
	"context"
	"errors"

	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/domain/models"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrDuplicate is returned when a unique key would be violated.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrBadField is returned when a set operation names a field the
	// collection does not support.
	ErrBadField = errors.New("store: unsupported set field")
)

// Set fields on group documents.
const (
	FieldAdmins     = "admins"
	FieldMembers    = "members"
	FieldInterested = "interested"
	FieldBanned     = "banned"
	FieldChannelIDs = "channel_ids"
)

// Set fields on user documents.
const (
	FieldGroupIDs      = "group_ids"
	FieldInterestedIDs = "interested_ids"
)

// GroupSetField reports whether f is a set field of the groups collection.
func GroupSetField(f string) bool {
	switch f {
	case FieldAdmins, FieldMembers, FieldInterested, FieldBanned, FieldChannelIDs:
		return true
	}
	return false
}

// UserSetField reports whether f is a set field of the users collection.
func UserSetField(f string) bool {
	return f == FieldGroupIDs || f == FieldInterestedIDs
}

// TierField maps a group tier to the set field that holds it. ok is false
// for TierNone.
func TierField(t models.Tier) (field string, ok bool) {
	switch t {
	case models.TierAdmin:
		return FieldAdmins, true
	case models.TierMember:
		return FieldMembers, true
	case models.TierInterested:
		return FieldInterested, true
	case models.TierBanned:
		return FieldBanned, true
	}
	return "", false
}

// SetOps are the per-document set primitives. Move pulls value from every
// field in from and adds it to to in one atomic document update.
type SetOps interface {
	AddToSet(ctx context.Context, id, field, value string) error
	RemoveFromSet(ctx context.Context, id, field, value string) error
	Move(ctx context.Context, id, value, to string, from ...string) error
}

// Users is the users collection.
type Users interface {
	SetOps
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	SetRole(ctx context.Context, id string, role models.RoleTier) error
	SetRoot(ctx context.Context, id string, root bool) error
	ListRoots(ctx context.Context) ([]models.User, error)
	// PullGroupRefs removes groupID from group_ids and interested_ids of
	// every user that references it.
	PullGroupRefs(ctx context.Context, groupID string) (int64, error)
}

// Groups is the groups collection.
type Groups interface {
	SetOps
	GetByID(ctx context.Context, id string) (models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	UpdateInfo(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
}

// ChannelUpdate carries the mutable channel fields. Nil pointers are left
// unchanged; a non-nil empty Members clears the restriction.
type ChannelUpdate struct {
	Name        *string
	Description *string
	Members     *[]string
}

// Channels is the channels collection. Deletes are logical: a deleted
// channel is reported as ErrNotFound by every read.
type Channels interface {
	GetByID(ctx context.Context, id string) (models.Channel, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Channel, error)
	Create(ctx context.Context, c models.Channel) (models.Channel, error)
	UpdateInfo(ctx context.Context, id string, upd ChannelUpdate) error
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	DeleteByGroup(ctx context.Context, groupID string) (int64, error)
}

// Messages is the messages collection. Messages are append-only.
type Messages interface {
	Insert(ctx context.Context, m models.Message) (models.Message, error)
	// ListByChannel returns up to limit messages older than cur (zero means
	// from the newest), ordered by (created_at, id), oldest first.
	ListByChannel(ctx context.Context, channelID string, cur paging.Cursor, limit int) ([]models.Message, error)
}
