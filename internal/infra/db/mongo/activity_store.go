package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shutterbook/internal/app/policies"
)

// ActivityStore is the audit trail written after each committed mutation.
type ActivityStore struct {
	col *mongo.Collection
}

func NewActivityStore(ctx context.Context, db *mongo.Database) (*ActivityStore, error) {
	col := db.Collection("activity_log")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "entity_kind", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "at", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &ActivityStore{col: col}, nil
}

type activityDocument struct {
	ID          string    `bson:"_id"`
	Action      string    `bson:"action"`
	EntityKind  string    `bson:"entity_kind"`
	EntityID    string    `bson:"entity_id"`
	EntityLabel string    `bson:"entity_label"`
	Description string    `bson:"description"`
	At          time.Time `bson:"at"`
}

func (s *ActivityStore) Record(ctx context.Context, entry policies.AuditEntry) error {
	doc := activityDocument{
		ID:          uuid.NewString(),
		Action:      entry.Action,
		EntityKind:  entry.EntityKind,
		EntityID:    entry.EntityID,
		EntityLabel: entry.EntityLabel,
		Description: entry.Description,
		At:          entry.At.UTC(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Recent lists the latest entries for one entity, newest first.
func (s *ActivityStore) Recent(ctx context.Context, kind, id string, limit int64) ([]policies.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{"entity_kind": kind, "entity_id": id}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []activityDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]policies.AuditEntry, len(docs))
	for i, d := range docs {
		out[i] = policies.AuditEntry{
			Action:      d.Action,
			EntityKind:  d.EntityKind,
			EntityID:    d.EntityID,
			EntityLabel: d.EntityLabel,
			Description: d.Description,
			At:          d.At,
		}
	}
	return out, nil
}

var (
	_ policies.AuditRecorder  = (*ActivityStore)(nil)
	_ policies.ActivityReader = (*ActivityStore)(nil)
)
