package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shutterbook/internal/app/uow"
	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/timerange"
	"shutterbook/internal/infra/storage/memory"
)

var now = time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

func newBooking(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	start, _ := timerange.NewTimeOfDay(10, 0)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.BookingID(id),
		Details: domainbooking.Details{
			ClientID:       "c-1",
			EventType:      "Portrait",
			PreferredDate:  now.AddDate(0, 0, 7),
			PreferredStart: start,
			DurationHours:  1,
			Location:       "Studio",
		},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	return b
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	unit, err := store.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := unit.Bookings().Insert(ctx, newBooking(t, "b-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	reader, _ := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer func() { _ = reader.Rollback(ctx) }()
	if _, err := reader.Bookings().ByID(ctx, "b-1"); !errors.Is(err, domainbooking.ErrNotFound) {
		t.Fatalf("rolled back booking visible: %v", err)
	}
}

func TestReadersSeeCommittedSnapshot(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	reader, _ := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer func() { _ = reader.Rollback(ctx) }()

	writer, _ := store.Begin(ctx, uow.TxOptions{})
	b := newBooking(t, "b-1")
	if err := writer.Bookings().Insert(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := writer.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := reader.Bookings().ByID(ctx, "b-1"); !errors.Is(err, domainbooking.ErrNotFound) {
		t.Fatalf("earlier snapshot sees later commit: %v", err)
	}
	fresh, _ := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer func() { _ = fresh.Rollback(ctx) }()
	got, err := fresh.Bookings().ByReference(ctx, b.Reference)
	if err != nil || got.Version != 1 {
		t.Fatalf("committed booking = %+v, %v", got, err)
	}
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	unit, _ := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	defer func() { _ = unit.Rollback(ctx) }()
	if err := unit.Bookings().Insert(ctx, newBooking(t, "b-1")); !errors.Is(err, memory.ErrReadOnly) {
		t.Fatalf("insert err = %v", err)
	}
	if err := unit.LockResource(ctx, "p-1"); !errors.Is(err, memory.ErrReadOnly) {
		t.Fatalf("lock err = %v", err)
	}
}

func TestBookingVersionsAndReferences(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	unit, _ := store.Begin(ctx, uow.TxOptions{})
	defer func() { _ = unit.Rollback(ctx) }()

	first := newBooking(t, "b-1")
	if err := unit.Bookings().Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	clash := newBooking(t, "b-2")
	clash.Reference = first.Reference
	if err := unit.Bookings().Insert(ctx, clash); !errors.Is(err, domainbooking.ErrDuplicateReference) {
		t.Fatalf("duplicate reference err = %v", err)
	}

	loaded, _ := unit.Bookings().ForUpdate(ctx, "b-1")
	if err := unit.Bookings().Save(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("version = %d, want 2", loaded.Version)
	}
}

func TestUnitCannotBeUsedAfterCommit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	unit, _ := store.Begin(ctx, uow.TxOptions{})
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := unit.Bookings().ByID(ctx, "b-1"); !errors.Is(err, memory.ErrUnitClosed) {
		t.Fatalf("err = %v", err)
	}
	if err := unit.Commit(ctx); !errors.Is(err, memory.ErrUnitClosed) {
		t.Fatalf("second commit err = %v", err)
	}
}
