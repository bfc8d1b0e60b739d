// internal/app/bootstrap/root.go
package bootstrap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// credentialOut receives a generated root password. It is kept out of the
// structured log so the secret never reaches a log sink.
var credentialOut io.Writer = os.Stderr

// ensureRootSuperAdmin makes sure exactly one root superadmin exists and
// returns its id.
//
//   - More than one root: the oldest keeps the flag, the rest lose it.
//   - No root: the user named root_username is promoted, or created.
//   - The root always holds the superadmin role.
func ensureRootSuperAdmin(ctx context.Context, users store.Users, cfg AppConfig, logger *zap.Logger) (string, error) {
	roots, err := users.ListRoots(ctx)
	if err != nil {
		return "", fmt.Errorf("list roots: %w", err)
	}

	var root models.User
	switch {
	case len(roots) > 0:
		slices.SortFunc(roots, func(a, b models.User) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
		root = roots[0]
		for _, extra := range roots[1:] {
			if err := users.SetRoot(ctx, extra.ID, false); err != nil {
				return "", fmt.Errorf("clear extra root %s: %w", extra.ID, err)
			}
			logger.Warn("cleared duplicate root flag",
				zap.String("user_id", extra.ID),
				zap.String("kept", root.ID))
		}

	default:
		root, err = adoptOrCreateRoot(ctx, users, cfg, logger)
		if err != nil {
			return "", err
		}
	}

	if root.Role != models.RoleSuperAdmin {
		if err := users.SetRole(ctx, root.ID, models.RoleSuperAdmin); err != nil {
			return "", fmt.Errorf("set root role: %w", err)
		}
		logger.Info("root promoted to superadmin", zap.String("user_id", root.ID))
	}
	return root.ID, nil
}

func adoptOrCreateRoot(ctx context.Context, users store.Users, cfg AppConfig, logger *zap.Logger) (models.User, error) {
	username := strings.TrimSpace(cfg.RootUsername)

	existing, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := users.SetRoot(ctx, existing.ID, true); err != nil {
			return models.User{}, fmt.Errorf("mark root: %w", err)
		}
		logger.Info("existing user marked as root",
			zap.String("user_id", existing.ID),
			zap.String("username", existing.Username))
		existing.Root = true
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return models.User{}, fmt.Errorf("lookup root: %w", err)
	}

	password := cfg.RootPassword
	generated := password == ""
	if generated {
		password = base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(18))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash root password: %w", err)
	}

	created, err := users.Create(ctx, models.User{
		Username:     username,
		Email:        strings.TrimSpace(cfg.RootEmail),
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		Root:         true,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("create root: %w", err)
	}

	if generated {
		// Printed once; the hash is all that is stored.
		fmt.Fprintf(credentialOut, "stratachat: root superadmin %q created with generated password: %s\n", created.Username, password)
		logger.Warn("created root superadmin with a generated password; it was written to stderr once",
			zap.String("username", created.Username))
	} else {
		logger.Info("created root superadmin", zap.String("username", created.Username))
	}
	return created, nil
}
