// internal/app/store/groups/groupstore.go
package groupstore

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

var _ store.Groups = (*Store)(nil)

func New(db *mongo.Database) *Store {
	c := db.Collection("groups")
	return &Store{
		MongoSets: store.MongoSets{C: c, Allowed: store.GroupSetField},
		c:         c,
	}
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, store.NotFound(err)
	}
	return g, nil
}

// List returns all groups ordered by folded name.
func (s *Store) List(ctx context.Context) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID == "" {
		g.ID = primitive.NewObjectID().Hex()
	}
	g.Name = strings.TrimSpace(g.Name)
	g.NameCI = text.Fold(g.Name)
	for _, p := range []*[]string{&g.Admins, &g.Members, &g.Interested, &g.Banned, &g.ChannelIDs} {
		if *p == nil {
			*p = []string{}
		}
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, store.ErrDuplicate
		}
		return models.Group{}, err
	}
	return g, nil
}

// UpdateInfo changes the name (when non-blank) and description.
func (s *Store) UpdateInfo(ctx context.Context, id, name, desc string) error {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if strings.TrimSpace(name) != "" {
		set["name"] = strings.TrimSpace(name)
		set["name_ci"] = text.Fold(name)
	}
	// Description can be cleared (set to empty)
	set["description"] = desc
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

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
