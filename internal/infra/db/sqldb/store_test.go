package sqldb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/domain/shared/timerange"
	"shutterbook/internal/infra/db/sqldb"
)

var now = time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqldb.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqldb.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func begin(t *testing.T, store *sqldb.Store) uow.UnitOfWork {
	t.Helper()
	unit, err := store.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return unit
}

func newBooking(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	start, _ := timerange.NewTimeOfDay(14, 30)
	price := money.Money{Amount: 45000, Currency: "EUR"}
	resource := domainbooking.ResourceID("p-1")
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.BookingID(id),
		Details: domainbooking.Details{
			ClientID:       "c-1",
			ResourceID:     &resource,
			EventType:      "Wedding",
			PreferredDate:  now.AddDate(0, 0, 12),
			PreferredStart: start,
			DurationHours:  2.5,
			Location:       "Old Town Hall",
			EstimatedPrice: &price,
		},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	return b
}

func TestMigrateIsRepeatable(t *testing.T) {
	store := openStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if store.Dialect().Name != sqldb.SQLite.Name {
		t.Fatalf("dialect = %s", store.Dialect().Name)
	}
}

func TestDialectByName(t *testing.T) {
	if d, err := sqldb.DialectByName("postgres"); err != nil || d.LockQuery == "" {
		t.Fatalf("postgres dialect = %+v, %v", d, err)
	}
	if _, err := sqldb.DialectByName("oracle"); !errors.Is(err, sqldb.ErrUnknownDialect) {
		t.Fatalf("err = %v", err)
	}
}

func TestBookingRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	b := newBooking(t, "b-1")

	unit := begin(t, store)
	if err := unit.Bookings().Insert(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	clash := newBooking(t, "b-2")
	clash.Reference = b.Reference
	if err := unit.Bookings().Insert(ctx, clash); !errors.Is(err, domainbooking.ErrDuplicateReference) {
		t.Fatalf("duplicate reference err = %v", err)
	}
	// A failed statement does not abort a SQLite transaction.
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	unit = begin(t, store)
	defer func() { _ = unit.Rollback(ctx) }()
	got, err := unit.Bookings().ByReference(ctx, b.Reference)
	if err != nil {
		t.Fatalf("by reference: %v", err)
	}
	if got.ID != b.ID || got.Version != 1 || got.Status != domainbooking.StatusPending {
		t.Fatalf("loaded = %+v", got)
	}
	if got.PreferredStart.String() != "14:30" || got.DurationHours != 2.5 {
		t.Fatalf("schedule = %s / %v", got.PreferredStart, got.DurationHours)
	}
	if got.EstimatedPrice == nil || *got.EstimatedPrice != *b.EstimatedPrice {
		t.Fatalf("price = %v", got.EstimatedPrice)
	}
	if got.ResourceID == nil || *got.ResourceID != "p-1" || !got.PreferredDate.Equal(b.PreferredDate) {
		t.Fatalf("resource/date = %v / %v", got.ResourceID, got.PreferredDate)
	}

	if err := got.Confirm("p-1", "", now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := unit.Bookings().Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d", got.Version)
	}
	list, err := unit.Bookings().List(ctx, domainbooking.Filter{Status: domainbooking.StatusConfirmed})
	if err != nil || len(list) != 1 {
		t.Fatalf("list confirmed = %d, %v", len(list), err)
	}
	if _, err := unit.Bookings().ByID(ctx, "nope"); !errors.Is(err, domainbooking.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestSlotQueries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	unit := begin(t, store)
	defer func() { _ = unit.Rollback(ctx) }()

	day := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	monday := time.Monday
	for i, hours := range [][2]int{{8, 9}, {10, 12}, {23, 25}} {
		s, err := domainavailability.NewSlot(domainavailability.NewSlotParams{
			ID:         domainavailability.SlotID([]string{"s-1", "s-2", "s-3"}[i]),
			ResourceID: "p-1",
			Range:      timerange.Range{Start: day.Add(time.Duration(hours[0]) * time.Hour), End: day.Add(time.Duration(hours[1]) * time.Hour)},
			Recurrence: &monday,
			CreatedAt:  now,
		})
		if err != nil {
			t.Fatalf("new slot: %v", err)
		}
		if err := unit.Slots().Insert(ctx, s); err != nil {
			t.Fatalf("insert slot: %v", err)
		}
	}

	overlapping, err := unit.Slots().Overlapping(ctx, "p-1", timerange.Range{Start: day.Add(9 * time.Hour), End: day.Add(11 * time.Hour)})
	if err != nil || len(overlapping) != 1 || overlapping[0].ID != "s-2" {
		t.Fatalf("overlapping = %v, %v", overlapping, err)
	}
	// The 23:00 slot runs into the next day and starts inside it only once.
	nextDay := timerange.Day(day.AddDate(0, 0, 1))
	inRange, err := unit.Slots().InRange(ctx, "", nextDay)
	if err != nil || len(inRange) != 0 {
		t.Fatalf("in range next day = %v, %v", inRange, err)
	}
	crossing, err := unit.Slots().Overlapping(ctx, "p-1", nextDay)
	if err != nil || len(crossing) != 1 || crossing[0].ID != "s-3" {
		t.Fatalf("crossing = %v, %v", crossing, err)
	}

	s, err := unit.Slots().ByID(ctx, "s-2")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if s.Recurrence == nil || *s.Recurrence != time.Monday {
		t.Fatalf("recurrence = %v", s.Recurrence)
	}
	if err := s.Book("b-1", now); err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := unit.Slots().Save(ctx, s); err != nil {
		t.Fatalf("save slot: %v", err)
	}
	booked, err := unit.Slots().ByBooking(ctx, "b-1")
	if err != nil || len(booked) != 1 || !booked[0].IsBooked {
		t.Fatalf("by booking = %v, %v", booked, err)
	}
	if err := unit.Slots().Delete(ctx, "missing"); !errors.Is(err, domainavailability.ErrSlotNotFound) {
		t.Fatalf("delete missing err = %v", err)
	}
}

func TestDirectory(t *testing.T) {
	store := openStore(t)
	dir := sqldb.NewDirectory(store)
	ctx := context.Background()

	if err := dir.AddClient(ctx, "c-1", "Ada"); err != nil {
		t.Fatalf("add client: %v", err)
	}
	if err := dir.AddClient(ctx, "c-1", "Ada Lovelace"); err != nil {
		t.Fatalf("upsert client: %v", err)
	}
	if ok, err := dir.ClientExists(ctx, "c-1"); err != nil || !ok {
		t.Fatalf("client exists = %v, %v", ok, err)
	}

	_ = dir.AddResource(ctx, "p-1", "Grace")
	if err := dir.RetireResource(ctx, "p-1"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if ok, _ := dir.ResourceExists(ctx, "p-1"); ok {
		t.Fatal("retired photographer is still assignable")
	}

	price := money.Money{Amount: 120000, Currency: "EUR"}
	_ = dir.AddPackage(ctx, "gold", "Gold", &price)
	_ = dir.AddPackage(ctx, "custom", "Custom", nil)
	if got, ok, err := dir.PackagePrice(ctx, "gold"); err != nil || !ok || got != price {
		t.Fatalf("gold price = %v, %v, %v", got, ok, err)
	}
	if _, ok, err := dir.PackagePrice(ctx, "custom"); err != nil || ok {
		t.Fatalf("custom price ok = %v, %v", ok, err)
	}
	if _, ok, err := dir.PackagePrice(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing price ok = %v, %v", ok, err)
	}
}
