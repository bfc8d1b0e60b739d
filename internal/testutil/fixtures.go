package testutil

import (
	"context"
	"testing"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/store/memstore"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures builds test data on an in-memory store and exposes an engine
// wired to it with a root superadmin already in place.
type Fixtures struct {
	t *testing.T

	Mem    *memstore.Store
	Engine *membership.Engine
	Root   models.User
}

// NewFixtures creates an empty store, the root superadmin and the engine.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	mem := memstore.New()
	root, err := mem.Users.Create(context.Background(), models.User{
		Username: "root",
		Email:    "root@localhost",
		Role:     models.RoleSuperAdmin,
		Root:     true,
	})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	eng := membership.New(membership.Deps{
		Users:    mem.Users,
		Groups:   mem.Groups,
		Channels: mem.Channels,
		RootID:   root.ID,
		Logger:   zap.NewNop(),
	})
	return &Fixtures{t: t, Mem: mem, Engine: eng, Root: root}
}

// CreateUser inserts a user with the given global role.
func (f *Fixtures) CreateUser(username string, role models.RoleTier) models.User {
	f.t.Helper()
	u, err := f.Mem.Users.Create(context.Background(), models.User{
		Username: username,
		Email:    username + "@test.local",
		Role:     role,
	})
	if err != nil {
		f.t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateUserWithPassword inserts a user whose credential is password.
func (f *Fixtures) CreateUserWithPassword(username, password string) models.User {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	u, err := f.Mem.Users.Create(context.Background(), models.User{
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: string(hash),
	})
	if err != nil {
		f.t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateGroup creates a group founded by founder.
func (f *Fixtures) CreateGroup(name string, founder models.User) models.Group {
	f.t.Helper()
	g, err := f.Engine.CreateGroup(context.Background(), name, "", founder.ID)
	if err != nil {
		f.t.Fatalf("create group %s: %v", name, err)
	}
	return g
}

// AddMember puts u into g's members.
func (f *Fixtures) AddMember(g models.Group, u models.User) {
	f.t.Helper()
	if err := f.Engine.AddMember(context.Background(), g.ID, u.ID); err != nil {
		f.t.Fatalf("add %s to %s: %v", u.Username, g.Name, err)
	}
}

// CreateChannel creates an unrestricted channel in g.
func (f *Fixtures) CreateChannel(g models.Group, name string) models.Channel {
	f.t.Helper()
	ch, err := f.Engine.CreateChannel(context.Background(), g.ID, membership.ChannelInput{Name: &name})
	if err != nil {
		f.t.Fatalf("create channel %s: %v", name, err)
	}
	return ch
}

// Group reloads g from the store.
func (f *Fixtures) Group(id string) models.Group {
	f.t.Helper()
	g, err := f.Mem.Groups.GetByID(context.Background(), id)
	if err != nil {
		f.t.Fatalf("reload group %s: %v", id, err)
	}
	return g
}

// User reloads a user from the store.
func (f *Fixtures) User(id string) models.User {
	f.t.Helper()
	u, err := f.Mem.Users.GetByID(context.Background(), id)
	if err != nil {
		f.t.Fatalf("reload user %s: %v", id, err)
	}
	return u
}
