// internal/app/store/channels/channelstore.go
package channelstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ store.Channels = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("channels")}
}

// live matches channels that have not been logically deleted.
func live(f bson.M) bson.M {
	f["deleted_at"] = bson.M{"$exists": false}
	return f
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Channel, error) {
	var c models.Channel
	if err := s.c.FindOne(ctx, live(bson.M{"_id": id})).Decode(&c); err != nil {
		return models.Channel{}, store.NotFound(err)
	}
	return c, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]models.Channel, error) {
	cur, err := s.c.Find(ctx, live(bson.M{"group_id": groupID}),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Channel{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a channel. A caller-supplied ID is kept.
func (s *Store) Create(ctx context.Context, c models.Channel) (models.Channel, error) {
	if c.ID == "" {
		c.ID = primitive.NewObjectID().Hex()
	}
	c.Name = strings.TrimSpace(c.Name)
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.DeletedAt = nil
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Channel{}, store.ErrDuplicate
		}
		return models.Channel{}, err
	}
	return c, nil
}

func (s *Store) UpdateInfo(ctx context.Context, id string, upd store.ChannelUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Members != nil {
		set["members"] = *upd.Members
	}
	res, err := s.c.UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete marks the channel deleted. Message history is left in place.
func (s *Store) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, live(bson.M{"_id": id}),
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Restore clears a logical delete.
func (s *Store) Restore(ctx context.Context, id string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"deleted_at": ""},
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

// DeleteByGroup logically deletes every live channel of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx, live(bson.M{"group_id": groupID}),
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
