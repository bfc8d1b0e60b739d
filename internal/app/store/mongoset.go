// internal/app/store/mongoset.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSets implements SetOps on a collection whose documents are keyed by
// string _id. Allowed restricts which fields may be touched.
type MongoSets struct {
	C       *mongo.Collection
	Allowed func(field string) bool
}

func (m MongoSets) check(fields ...string) error {
	for _, f := range fields {
		if !m.Allowed(f) {
			return fmt.Errorf("%w: %q", ErrBadField, f)
		}
	}
	return nil
}

func (m MongoSets) update(ctx context.Context, id string, upd bson.M) error {
	upd["$set"] = bson.M{"updated_at": time.Now().UTC()}
	res, err := m.C.UpdateByID(ctx, id, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToSet adds value to the named set field of document id.
func (m MongoSets) AddToSet(ctx context.Context, id, field, value string) error {
	if err := m.check(field); err != nil {
		return err
	}
	return m.update(ctx, id, bson.M{"$addToSet": bson.M{field: value}})
}

// RemoveFromSet removes value from the named set field of document id.
func (m MongoSets) RemoveFromSet(ctx context.Context, id, field, value string) error {
	if err := m.check(field); err != nil {
		return err
	}
	return m.update(ctx, id, bson.M{"$pull": bson.M{field: value}})
}

// Move pulls value from each from field and adds it to to, in one update.
// An empty to only pulls.
func (m MongoSets) Move(ctx context.Context, id, value, to string, from ...string) error {
	from = lo.Uniq(lo.Without(from, to))
	if err := m.check(from...); err != nil {
		return err
	}
	upd := bson.M{}
	if len(from) > 0 {
		pull := bson.M{}
		for _, f := range from {
			pull[f] = value
		}
		upd["$pull"] = pull
	}
	if to != "" {
		if err := m.check(to); err != nil {
			return err
		}
		upd["$addToSet"] = bson.M{to: value}
	}
	if len(upd) == 0 {
		return errors.New("store: move with no fields")
	}
	return m.update(ctx, id, upd)
}

// NotFound maps the driver's no-documents error to ErrNotFound.
func NotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
