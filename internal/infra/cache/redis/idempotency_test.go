package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"shutterbook/internal/app/middleware"
)

// fakeRedis implements the string commands the store uses. Any other
// Cmdable method panics through the nil embedded interface.
type fakeRedis struct {
	goredis.Cmdable

	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
	fail error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func asString(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	}
	panic("unexpected value type")
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return goredis.NewStringResult("", f.fail)
	}
	v, ok := f.vals[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = asString(value)
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.vals[key] = asString(value)
	f.ttls[key] = expiration
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.vals[k]; ok {
			delete(f.vals, k)
			delete(f.ttls, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, time.Hour)
	ctx := context.Background()
	now := time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

	if _, found, err := store.Get(ctx, "booking.create:k1"); err != nil || found {
		t.Fatalf("miss = %v, %v", found, err)
	}

	rec := middleware.IdempotencyRecord{Key: "booking.create:k1", Payload: []byte(`{"id":"b-1"}`), OccurredAt: now}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := store.Get(ctx, "booking.create:k1")
	if err != nil || !found {
		t.Fatalf("get = %v, %v", found, err)
	}
	if string(got.Payload) != `{"id":"b-1"}` || !got.OccurredAt.Equal(now) || got.Pending {
		t.Fatalf("record = %+v", got)
	}
	if ttl := fake.ttls[keyPrefix+"booking.create:k1"]; ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
}

func TestIdempotencyStoreDefaultTTL(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, 0)
	if err := store.Save(context.Background(), middleware.IdempotencyRecord{Key: "k"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := fake.ttls[keyPrefix+"k"]; ttl != 24*time.Hour {
		t.Fatalf("ttl = %v, want 24h", ttl)
	}
}

func TestIdempotencyStoreReservation(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, time.Hour)
	ctx := context.Background()
	now := time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

	if ok, err := store.Reserve(ctx, "k", now); err != nil || !ok {
		t.Fatalf("reserve = %v, %v", ok, err)
	}
	if ttl := fake.ttls[keyPrefix+"k"]; ttl != middleware.ReservationLease {
		t.Fatalf("reservation ttl = %v", ttl)
	}
	if ok, _ := store.Reserve(ctx, "k", now); ok {
		t.Fatal("second reserve succeeded")
	}
	pending, found, err := store.Get(ctx, "k")
	if err != nil || !found || !pending.Pending {
		t.Fatalf("pending record = %+v, %v, %v", pending, found, err)
	}

	if err := store.Release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := store.Reserve(ctx, "k", now); !ok {
		t.Fatal("reserve after release failed")
	}
	if err := store.Save(ctx, middleware.IdempotencyRecord{Key: "k", OccurredAt: now}); err != nil {
		t.Fatalf("save over reservation: %v", err)
	}
	if rec, _, _ := store.Get(ctx, "k"); rec.Pending || fake.ttls[keyPrefix+"k"] != time.Hour {
		t.Fatalf("outcome = %+v ttl %v", rec, fake.ttls[keyPrefix+"k"])
	}
}

func TestIdempotencyStoreSurfacesErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.fail = errors.New("connection refused")
	store := NewIdempotencyStore(fake, time.Hour)
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected lookup error")
	}
}
