package userstore

import (
	"context"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
)

// Fetcher implements auth.UserFetcher over any users store, so the session
// always carries the current role.
type Fetcher struct {
	users store.Users
}

// NewFetcher creates a UserFetcher backed by users.
func NewFetcher(users store.Users) *Fetcher {
	return &Fetcher{users: users}
}

// FetchUser returns nil when the user no longer exists or the lookup fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return &auth.SessionUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	}
}
