// internal/app/store/memstore/memstore.go

// Package memstore is an in-process implementation of the store contract.
// It backs the memory storage mode and the unit tests. Each collection has
// its own lock, so like Mongo it is atomic per document and never across
// collections.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store bundles the four collections.
type Store struct {
	Users    *Users
	Groups   *Groups
	Channels *Channels
	Messages *Messages
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Users:    &Users{byID: map[string]*models.User{}},
		Groups:   &Groups{byID: map[string]*models.Group{}},
		Channels: &Channels{byID: map[string]*models.Channel{}},
		Messages: &Messages{byChannel: map[string][]models.Message{}},
	}
}

func newID() string { return primitive.NewObjectID().Hex() }

func now() time.Time { return time.Now().UTC() }

func clone(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

func addTo(s []string, v string) []string {
	if lo.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func pull(s []string, v string) []string {
	return lo.Without(s, v)
}

// ---- users ----

type Users struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

var _ store.Users = (*Users)(nil)

func copyUser(u *models.User) models.User {
	out := *u
	out.GroupIDs = clone(u.GroupIDs)
	out.InterestedIDs = clone(u.InterestedIDs)
	return out
}

func (s *Users) userField(u *models.User, field string) (*[]string, error) {
	switch field {
	case store.FieldGroupIDs:
		return &u.GroupIDs, nil
	case store.FieldInterestedIDs:
		return &u.InterestedIDs, nil
	}
	return nil, fmt.Errorf("%w: %q", store.ErrBadField, field)
}

func (s *Users) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Users) GetByUsername(_ context.Context, username string) (models.User, error) {
	key := text.Fold(strings.TrimSpace(username))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.UsernameCI == key {
			return copyUser(u), nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if _, dup := s.byID[u.ID]; dup {
		return models.User{}, store.ErrDuplicate
	}
	for _, other := range s.byID {
		if other.UsernameCI == u.UsernameCI {
			return models.User{}, store.ErrDuplicate
		}
		if u.Root && other.Root {
			return models.User{}, store.ErrDuplicate
		}
	}
	u.GroupIDs = clone(u.GroupIDs)
	u.InterestedIDs = clone(u.InterestedIDs)
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	stored := u
	s.byID[u.ID] = &stored
	return copyUser(&stored), nil
}

func (s *Users) mutate(id string, fn func(u *models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	next := copyUser(u)
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = now()
	*u = next
	return nil
}

func (s *Users) SetRole(_ context.Context, id string, role models.RoleTier) error {
	return s.mutate(id, func(u *models.User) error {
		u.Role = role
		return nil
	})
}

func (s *Users) SetRoot(_ context.Context, id string, root bool) error {
	s.mu.Lock()
	if root {
		for oid, other := range s.byID {
			if oid != id && other.Root {
				s.mu.Unlock()
				return store.ErrDuplicate
			}
		}
	}
	s.mu.Unlock()
	return s.mutate(id, func(u *models.User) error {
		u.Root = root
		return nil
	})
}

func (s *Users) ListRoots(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.byID {
		if u.Root {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Users) AddToSet(_ context.Context, id, field, value string) error {
	return s.mutate(id, func(u *models.User) error {
		p, err := s.userField(u, field)
		if err != nil {
			return err
		}
		*p = addTo(*p, value)
		return nil
	})
}

func (s *Users) RemoveFromSet(_ context.Context, id, field, value string) error {
	return s.mutate(id, func(u *models.User) error {
		p, err := s.userField(u, field)
		if err != nil {
			return err
		}
		*p = pull(*p, value)
		return nil
	})
}

func (s *Users) Move(_ context.Context, id, value, to string, from ...string) error {
	return s.mutate(id, func(u *models.User) error {
		for _, f := range from {
			if f == to {
				continue
			}
			p, err := s.userField(u, f)
			if err != nil {
				return err
			}
			*p = pull(*p, value)
		}
		if to == "" {
			return nil
		}
		p, err := s.userField(u, to)
		if err != nil {
			return err
		}
		*p = addTo(*p, value)
		return nil
	})
}

func (s *Users) PullGroupRefs(_ context.Context, groupID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.byID {
		if lo.Contains(u.GroupIDs, groupID) || lo.Contains(u.InterestedIDs, groupID) {
			u.GroupIDs = pull(u.GroupIDs, groupID)
			u.InterestedIDs = pull(u.InterestedIDs, groupID)
			u.UpdatedAt = now()
			n++
		}
	}
	return n, nil
}

// All returns a snapshot of every user. Intended for tests.
func (s *Users) All() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, copyUser(u))
	}
	return out
}

// ---- groups ----

type Groups struct {
	mu   sync.Mutex
	byID map[string]*models.Group
}

var _ store.Groups = (*Groups)(nil)

func copyGroup(g *models.Group) models.Group {
	out := *g
	out.Admins = clone(g.Admins)
	out.Members = clone(g.Members)
	out.Interested = clone(g.Interested)
	out.Banned = clone(g.Banned)
	out.ChannelIDs = clone(g.ChannelIDs)
	return out
}

func groupField(g *models.Group, field string) (*[]string, error) {
	switch field {
	case store.FieldAdmins:
		return &g.Admins, nil
	case store.FieldMembers:
		return &g.Members, nil
	case store.FieldInterested:
		return &g.Interested, nil
	case store.FieldBanned:
		return &g.Banned, nil
	case store.FieldChannelIDs:
		return &g.ChannelIDs, nil
	}
	return nil, fmt.Errorf("%w: %q", store.ErrBadField, field)
}

func (s *Groups) GetByID(_ context.Context, id string) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byID[id]
	if !ok {
		return models.Group{}, store.ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *Groups) List(_ context.Context) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Group, 0, len(s.byID))
	for _, g := range s.byID {
		out = append(out, copyGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI == out[j].NameCI {
			return out[i].ID < out[j].ID
		}
		return out[i].NameCI < out[j].NameCI
	})
	return out, nil
}

func (s *Groups) Create(_ context.Context, g models.Group) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	if _, dup := s.byID[g.ID]; dup {
		return models.Group{}, store.ErrDuplicate
	}
	g.Name = strings.TrimSpace(g.Name)
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now()
	g.UpdatedAt = g.CreatedAt
	stored := copyGroup(&g)
	s.byID[g.ID] = &stored
	return copyGroup(&stored), nil
}

func (s *Groups) mutate(id string, fn func(g *models.Group) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	next := copyGroup(g)
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = now()
	*g = next
	return nil
}

func (s *Groups) UpdateInfo(_ context.Context, id, name, desc string) error {
	return s.mutate(id, func(g *models.Group) error {
		if strings.TrimSpace(name) != "" {
			g.Name = strings.TrimSpace(name)
			g.NameCI = text.Fold(g.Name)
		}
		g.Description = desc
		return nil
	})
}

func (s *Groups) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *Groups) AddToSet(_ context.Context, id, field, value string) error {
	return s.mutate(id, func(g *models.Group) error {
		p, err := groupField(g, field)
		if err != nil {
			return err
		}
		*p = addTo(*p, value)
		return nil
	})
}

func (s *Groups) RemoveFromSet(_ context.Context, id, field, value string) error {
	return s.mutate(id, func(g *models.Group) error {
		p, err := groupField(g, field)
		if err != nil {
			return err
		}
		*p = pull(*p, value)
		return nil
	})
}

func (s *Groups) Move(_ context.Context, id, value, to string, from ...string) error {
	return s.mutate(id, func(g *models.Group) error {
		for _, f := range from {
			if f == to {
				continue
			}
			p, err := groupField(g, f)
			if err != nil {
				return err
			}
			*p = pull(*p, value)
		}
		if to == "" {
			return nil
		}
		p, err := groupField(g, to)
		if err != nil {
			return err
		}
		*p = addTo(*p, value)
		return nil
	})
}

// All returns a snapshot of every group. Intended for tests.
func (s *Groups) All() []models.Group {
	out, _ := s.List(context.Background())
	return out
}

// ---- channels ----

type Channels struct {
	mu   sync.Mutex
	byID map[string]*models.Channel
}

var _ store.Channels = (*Channels)(nil)

func copyChannel(c *models.Channel) models.Channel {
	out := *c
	if c.Members != nil {
		out.Members = slices.Clone(c.Members)
	}
	return out
}

func (s *Channels) GetByID(_ context.Context, id string) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.DeletedAt != nil {
		return models.Channel{}, store.ErrNotFound
	}
	return copyChannel(c), nil
}

func (s *Channels) ListByGroup(_ context.Context, groupID string) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Channel{}
	for _, c := range s.byID {
		if c.GroupID == groupID && c.DeletedAt == nil {
			out = append(out, copyChannel(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Channels) Create(_ context.Context, c models.Channel) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	if _, dup := s.byID[c.ID]; dup {
		return models.Channel{}, store.ErrDuplicate
	}
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	c.DeletedAt = nil
	stored := copyChannel(&c)
	s.byID[c.ID] = &stored
	return copyChannel(&stored), nil
}

func (s *Channels) UpdateInfo(_ context.Context, id string, upd store.ChannelUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.DeletedAt != nil {
		return store.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Members != nil {
		c.Members = slices.Clone(*upd.Members)
	}
	c.UpdatedAt = now()
	return nil
}

func (s *Channels) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.DeletedAt != nil {
		return store.ErrNotFound
	}
	t := now()
	c.DeletedAt = &t
	c.UpdatedAt = t
	return nil
}

func (s *Channels) Restore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	c.DeletedAt = nil
	c.UpdatedAt = now()
	return nil
}

func (s *Channels) DeleteByGroup(_ context.Context, groupID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	t := now()
	for _, c := range s.byID {
		if c.GroupID == groupID && c.DeletedAt == nil {
			dt := t
			c.DeletedAt = &dt
			c.UpdatedAt = t
			n++
		}
	}
	return n, nil
}

// ---- messages ----

type Messages struct {
	mu        sync.Mutex
	byChannel map[string][]models.Message
}

var _ store.Messages = (*Messages)(nil)

func (s *Messages) Insert(_ context.Context, m models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.AttachmentRefs != nil {
		m.AttachmentRefs = slices.Clone(m.AttachmentRefs)
	}
	s.byChannel[m.ChannelID] = append(s.byChannel[m.ChannelID], m)
	return m, nil
}

func (s *Messages) ListByChannel(_ context.Context, channelID string, cur paging.Cursor, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.byChannel[channelID] {
		if cur.Admits(m.CreatedAt, m.ID) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
