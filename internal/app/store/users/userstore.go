// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	store.MongoSets
	c *mongo.Collection
}

var _ store.Users = (*Store)(nil)

func New(db *mongo.Database) *Store {
	c := db.Collection("users")
	return &Store{
		MongoSets: store.MongoSets{C: c, Allowed: store.UserSetField},
		c:         c,
	}
}

// GetByID loads a user by ID.
func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, store.NotFound(err)
	}
	return u, nil
}

// GetByUsername looks up a user by case-folded username.
func (s *Store) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username_ci": text.Fold(strings.TrimSpace(username))}).Decode(&u); err != nil {
		return models.User{}, store.NotFound(err)
	}
	return u, nil
}

// Create inserts a new user. A zero role defaults to user; nil sets are
// stored as empty arrays so $addToSet and $pull always have a target.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.GroupIDs == nil {
		u.GroupIDs = []string{}
	}
	if u.InterestedIDs == nil {
		u.InterestedIDs = []string{}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, store.ErrDuplicate
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) set(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return store.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetRole replaces the user's global role.
func (s *Store) SetRole(ctx context.Context, id string, role models.RoleTier) error {
	return s.set(ctx, id, bson.M{"role": role})
}

// SetRoot sets or clears the root flag. The field is removed rather than
// stored as false so the partial unique index only sees root users.
func (s *Store) SetRoot(ctx context.Context, id string, root bool) error {
	if root {
		return s.set(ctx, id, bson.M{"root": true})
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"root": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRoots returns every user carrying the root flag, oldest first.
func (s *Store) ListRoots(ctx context.Context) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"root": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PullGroupRefs removes groupID from every user's group_ids and
// interested_ids.
func (s *Store) PullGroupRefs(ctx context.Context, groupID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{store.FieldGroupIDs: groupID},
			bson.M{store.FieldInterestedIDs: groupID},
		}},
		bson.M{
			"$pull": bson.M{store.FieldGroupIDs: groupID, store.FieldInterestedIDs: groupID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
