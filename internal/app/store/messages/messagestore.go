// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxPage caps a single history read.
const MaxPage = 200

type Store struct {
	c *mongo.Collection
}

var _ store.Messages = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Insert appends a message. CreatedAt is set by the caller (the server
// clock); a zero value is filled in here.
func (s *Store) Insert(ctx context.Context, m models.Message) (models.Message, error) {
	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *Store) ListByChannel(ctx context.Context, channelID string, at paging.Cursor, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > MaxPage {
		limit = MaxPage
	}
	cur, err := s.c.Find(ctx, cursorFilter(channelID, at),
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	paging.Reverse(out)
	return out, nil
}

// cursorFilter selects the rows of channelID older than at in
// (created_at, _id) order.
func cursorFilter(channelID string, at paging.Cursor) bson.M {
	f := bson.M{"channel_id": channelID}
	switch {
	case at.IsZero():
	case at.BeforeID == "":
		f["created_at"] = bson.M{"$lt": at.Before}
	default:
		f["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": at.Before}},
			bson.M{"created_at": at.Before, "_id": bson.M{"$lt": at.BeforeID}},
		}
	}
	return f
}
