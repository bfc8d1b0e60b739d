// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventSignInSuccess            = "sign_in_success"
	EventSignInFailedUnknownUser  = "sign_in_failed_unknown_user"
	EventSignInFailedWrongPass    = "sign_in_failed_wrong_password"
	EventSignInFailedNoCredential = "sign_in_failed_no_credential"
	EventSignInFailedRateLimit    = "sign_in_failed_rate_limit"
	EventSignOut                  = "sign_out"
)

// Event is one audit record. Admin events carry the route that ran as
// EventType and its path parameters in Details.
type Event struct {
	ID        string    `bson:"_id" json:"id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	UserID  string `bson:"user_id,omitempty" json:"userId,omitempty"`   // affected user
	ActorID string `bson:"actor_id,omitempty" json:"actorId,omitempty"` // who performed the action
	GroupID string `bson:"group_id,omitempty" json:"groupId,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	Status        int    `bson:"status,omitempty" json:"status,omitempty"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows List. Empty fields match everything.
type QueryFilter struct {
	UserID    string
	ActorID   string
	GroupID   string
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts an event, filling ID and Timestamp when unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = primitive.NewObjectID().Hex()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// List returns matching events, newest first.
func (s *Store) List(ctx context.Context, f QueryFilter) ([]Event, error) {
	cur, err := s.c.Find(ctx, buildFilter(f), listOptions(f))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByFilter counts matching events.
func (s *Store) CountByFilter(ctx context.Context, f QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildFilter(f))
}

func buildFilter(f QueryFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.ActorID != "" {
		filter["actor_id"] = f.ActorID
	}
	if f.GroupID != "" {
		filter["group_id"] = f.GroupID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.EventType != "" {
		filter["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tf := bson.M{}
		if f.StartTime != nil {
			tf["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tf["$lte"] = *f.EndTime
		}
		filter["timestamp"] = tf
	}
	return filter
}

func listOptions(f QueryFilter) *options.FindOptions {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
}
