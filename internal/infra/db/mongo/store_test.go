package mongo_test

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"shutterbook/internal/app/middleware"
	"shutterbook/internal/app/policies"
	mongodb "shutterbook/internal/infra/db/mongo"
)

var now = time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

func newIdempotencyStore(mt *mtest.T) *mongodb.IdempotencyStore {
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	store, err := mongodb.NewIdempotencyStore(context.Background(), mt.DB, time.Hour)
	if err != nil {
		mt.Fatalf("new store: %v", err)
	}
	return store
}

func TestIdempotencyStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := mtest.TestDb + ".command_idempotency"

	mt.Run("get miss", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		if _, found, err := store.Get(context.Background(), "k"); err != nil || found {
			mt.Fatalf("miss = %v, %v", found, err)
		}
	})

	mt.Run("get hit", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "booking.create:k1"},
			{Key: "payload", Value: []byte(`{"id":"b-1"}`)},
			{Key: "occurred_at", Value: now},
			{Key: "created_at", Value: now},
		}))
		rec, found, err := store.Get(context.Background(), "booking.create:k1")
		if err != nil || !found {
			mt.Fatalf("get = %v, %v", found, err)
		}
		if rec.Key != "booking.create:k1" || string(rec.Payload) != `{"id":"b-1"}` || rec.Pending {
			mt.Fatalf("record = %+v", rec)
		}
	})

	mt.Run("reserve absent key", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "k"}}}},
		))
		if ok, err := store.Reserve(context.Background(), "k", now); err != nil || !ok {
			mt.Fatalf("reserve = %v, %v", ok, err)
		}
	})

	mt.Run("reserve taken key", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		if ok, err := store.Reserve(context.Background(), "k", now); err != nil || ok {
			mt.Fatalf("reserve = %v, %v", ok, err)
		}
	})

	mt.Run("reserve surfaces other errors", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad filter",
		}))
		if _, err := store.Reserve(context.Background(), "k", now); err == nil {
			mt.Fatal("expected error")
		}
	})

	mt.Run("save", func(mt *mtest.T) {
		store := newIdempotencyStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		if err := store.Save(context.Background(), middleware.IdempotencyRecord{Key: "k", OccurredAt: now}); err != nil {
			mt.Fatalf("save: %v", err)
		}
	})
}

func TestActivityStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := mtest.TestDb + ".activity_log"

	mt.Run("recent maps documents in order", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store, err := mongodb.NewActivityStore(context.Background(), mt.DB)
		if err != nil {
			mt.Fatalf("new store: %v", err)
		}
		doc := func(id, action string, at time.Time) bson.D {
			return bson.D{
				{Key: "_id", Value: id},
				{Key: "action", Value: action},
				{Key: "entity_kind", Value: "booking"},
				{Key: "entity_id", Value: "b-1"},
				{Key: "entity_label", Value: "BK-300603-0001"},
				{Key: "description", Value: action + " booking"},
				{Key: "at", Value: at},
			}
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			doc("a-2", "Updated", now.Add(time.Hour)),
			doc("a-1", "Created", now),
		))
		got, err := store.Recent(context.Background(), "booking", "b-1", 10)
		if err != nil {
			mt.Fatalf("recent: %v", err)
		}
		if len(got) != 2 || got[0].Action != "Updated" || got[1].Action != "Created" {
			mt.Fatalf("entries = %+v", got)
		}
		if got[1].EntityLabel != "BK-300603-0001" || !got[1].At.Equal(now) {
			mt.Fatalf("mapped entry = %+v", got[1])
		}
	})

	mt.Run("record inserts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store, err := mongodb.NewActivityStore(context.Background(), mt.DB)
		if err != nil {
			mt.Fatalf("new store: %v", err)
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := store.Record(context.Background(), policies.AuditEntry{
			Action:      policies.AuditCreated,
			EntityKind:  "booking",
			EntityID:    "b-1",
			Description: "Booking request created",
			At:          now,
		}); err != nil {
			mt.Fatalf("record: %v", err)
		}
	})
}
