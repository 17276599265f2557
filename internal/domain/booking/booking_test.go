package booking

import (
	"errors"
	"testing"
	"time"

	"shutterbook/internal/domain/shared/apperr"
	"shutterbook/internal/domain/shared/timerange"
)

var testNow = time.Date(2030, 6, 4, 10, 0, 0, 0, time.UTC)

func validDetails() Details {
	start, _ := timerange.NewTimeOfDay(14, 0)
	return Details{
		ClientID:       "client-1",
		EventType:      "Wedding",
		PreferredDate:  testNow.AddDate(0, 0, 10),
		PreferredStart: start,
		DurationHours:  2.5,
		Location:       "Old Town Hall",
	}
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{ID: "b-1", Details: validDetails(), CreatedAt: testNow})
	if err != nil {
		t.Fatalf("NewBooking() error = %v", err)
	}
	return b
}

func ptr[T any](v T) *T { return &v }

func TestNewBooking(t *testing.T) {
	b := newPending(t)
	if b.Status != StatusPending {
		t.Errorf("Status = %s, want Pending", b.Status)
	}
	if !b.Reference.Valid() {
		t.Errorf("generated reference %q is not BK-YYMMDD-NNNN", b.Reference)
	}
	if got := string(b.Reference[:10]); got != "BK-300604-" {
		t.Errorf("reference prefix = %q", got)
	}
	evs := b.PendingEvents()
	if len(evs) != 1 || evs[0].EventName() != "booking.created" {
		t.Errorf("events = %v", evs)
	}
}

func TestNewBookingValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Details)
		ref      Reference
		wantCode string
	}{
		{"past date", func(d *Details) { d.PreferredDate = testNow.AddDate(0, 0, -1) }, "", "PastDate"},
		{"too short", func(d *Details) { d.DurationHours = 0.25 }, "", "InvalidDuration"},
		{"too long", func(d *Details) { d.DurationHours = 12.5 }, "", "InvalidDuration"},
		{"no client", func(d *Details) { d.ClientID = " " }, "", "ClientRequired"},
		{"no location", func(d *Details) { d.Location = "" }, "", "LocationRequired"},
		{"bad reference", func(d *Details) {}, "BK-1-2", "InvalidReference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			tt.mutate(&d)
			_, err := NewBooking(CreateParams{ID: "b", Reference: tt.ref, Details: d, CreatedAt: testNow})
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if got := apperr.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	t.Run("today is allowed", func(t *testing.T) {
		d := validDetails()
		d.PreferredDate = testNow
		if _, err := NewBooking(CreateParams{ID: "b", Details: d, CreatedAt: testNow}); err != nil {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("explicit reference kept", func(t *testing.T) {
		b, err := NewBooking(CreateParams{ID: "b", Reference: "BK-300601-0042", Details: validDetails(), CreatedAt: testNow})
		if err != nil {
			t.Fatal(err)
		}
		if b.Reference != "BK-300601-0042" {
			t.Errorf("Reference = %s", b.Reference)
		}
	})
}

// inStatus drives a fresh booking into s through legal transitions.
func inStatus(t *testing.T, s Status) *Booking {
	t.Helper()
	b := newPending(t)
	switch s {
	case StatusPending:
	case StatusConfirmed:
		mustDo(t, b.Confirm("ph-1", "", testNow))
	case StatusDeclined:
		mustDo(t, b.Decline("fully booked", testNow))
	case StatusCancelled:
		mustDo(t, b.Confirm("ph-1", "", testNow))
		mustDo(t, b.Cancel(0, testNow))
	case StatusCompleted:
		mustDo(t, b.Confirm("ph-1", "", testNow))
		mustDo(t, b.MarkConverted("eng-1", testNow))
	}
	return b
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	for _, s := range Statuses() {
		t.Run(string(s), func(t *testing.T) {
			b := inStatus(t, s)
			_, err := b.ResolveConfirmResource(ptr(ResourceID("ph-2")))
			if s == StatusPending {
				if err != nil {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if !apperr.IsKind(err, apperr.KindStateTransition) {
				t.Errorf("err = %v, want state transition violation", err)
			}
		})
	}
}

func TestResolveConfirmResource(t *testing.T) {
	b := newPending(t)
	if _, err := b.ResolveConfirmResource(nil); !errors.Is(err, ErrNoResourceAssigned) {
		t.Fatalf("no resource: err = %v", err)
	}
	if !apperr.IsKind(ErrNoResourceAssigned, apperr.KindPrecondition) {
		t.Error("NoResourceAssigned must be a precondition error")
	}
	b.ResourceID = ptr(ResourceID("ph-1"))
	got, err := b.ResolveConfirmResource(nil)
	if err != nil || got != "ph-1" {
		t.Errorf("existing assignment: got %q, %v", got, err)
	}
	got, err = b.ResolveConfirmResource(ptr(ResourceID("ph-9")))
	if err != nil || got != "ph-9" {
		t.Errorf("override: got %q, %v", got, err)
	}
}

func TestDecline(t *testing.T) {
	b := newPending(t)
	if err := b.Decline("  ", testNow); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("empty reason: err = %v", err)
	}
	mustDo(t, b.Decline("date unavailable", testNow))
	if b.Status != StatusDeclined || b.DeclineReason != "date unavailable" || b.DeclinedAt == nil {
		t.Errorf("unexpected booking after decline: %+v", b)
	}
	if err := b.Decline("again", testNow); !apperr.IsKind(err, apperr.KindStateTransition) {
		t.Errorf("second decline: err = %v", err)
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		from     Status
		wantCode string
	}{
		{StatusPending, ""},
		{StatusConfirmed, ""},
		{StatusCompleted, "AlreadyCompleted"},
		{StatusDeclined, "CannotCancel"},
		{StatusCancelled, "CannotCancel"},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			b := inStatus(t, tt.from)
			err := b.Cancel(1, testNow)
			if got := apperr.CodeOf(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.wantCode, err)
			}
			if tt.wantCode == "" && (b.Status != StatusCancelled || b.CancelledAt == nil) {
				t.Errorf("booking not cancelled: %+v", b)
			}
		})
	}
}

func TestReopen(t *testing.T) {
	b := inStatus(t, StatusCancelled)
	later := testNow.Add(time.Hour)
	mustDo(t, b.Reopen(later))
	if b.Status != StatusConfirmed || !b.ConfirmedAt.Equal(later) {
		t.Errorf("after reopen: status %s confirmed %v", b.Status, b.ConfirmedAt)
	}

	noResource := inStatus(t, StatusPending)
	mustDo(t, noResource.Cancel(0, testNow))
	if err := noResource.Reopen(testNow); !errors.Is(err, ErrNoResourceAssigned) {
		t.Errorf("reopen without resource: err = %v", err)
	}

	if err := inStatus(t, StatusConfirmed).Reopen(testNow); !apperr.IsKind(err, apperr.KindStateTransition) {
		t.Errorf("reopen confirmed: err = %v", err)
	}
}

func TestEnsureConvertible(t *testing.T) {
	if err := inStatus(t, StatusConfirmed).EnsureConvertible(); err != nil {
		t.Fatalf("confirmed: err = %v", err)
	}
	if err := inStatus(t, StatusPending).EnsureConvertible(); apperr.CodeOf(err) != "InvalidState" {
		t.Errorf("pending: err = %v", err)
	}
	converted := inStatus(t, StatusCompleted)
	if err := converted.EnsureConvertible(); !errors.Is(err, ErrAlreadyConverted) {
		t.Errorf("second conversion: err = %v", err)
	}
	if !apperr.IsKind(ErrAlreadyConverted, apperr.KindPrecondition) {
		t.Error("AlreadyConverted must be a precondition error")
	}
	unassigned := inStatus(t, StatusConfirmed)
	unassigned.ResourceID = nil
	if err := unassigned.EnsureConvertible(); !errors.Is(err, ErrNoResourceAssigned) {
		t.Errorf("unassigned: err = %v", err)
	}
}

func TestSplitHours(t *testing.T) {
	tests := []struct {
		in          float64
		hours, mins int
	}{
		{2.5, 2, 30},
		{0.5, 0, 30},
		{12, 12, 0},
		{1.75, 1, 45},
		{1.33, 1, 20},
	}
	for _, tt := range tests {
		h, m := SplitHours(tt.in)
		if h != tt.hours || m != tt.mins {
			t.Errorf("SplitHours(%v) = %d, %d; want %d, %d", tt.in, h, m, tt.hours, tt.mins)
		}
	}
}

func TestWindow(t *testing.T) {
	b := newPending(t)
	w := b.Window()
	wantStart := time.Date(2030, 6, 14, 14, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || w.Duration() != 150*time.Minute {
		t.Errorf("Window() = %v..%v", w.Start, w.End)
	}
}

func TestUpdateOnlyPending(t *testing.T) {
	b := newPending(t)
	d := b.Details()
	d.Location = "Harbour"
	mustDo(t, b.Update(d, testNow))
	if b.Location != "Harbour" {
		t.Errorf("Location = %q", b.Location)
	}
	c := inStatus(t, StatusConfirmed)
	if err := c.Update(c.Details(), testNow); !apperr.IsKind(err, apperr.KindStateTransition) {
		t.Errorf("update confirmed: err = %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := inStatus(t, StatusConfirmed)
	c := b.Clone()
	*c.ResourceID = "other"
	if *b.ResourceID != "ph-1" {
		t.Error("Clone shares ResourceID pointer")
	}
	if len(c.PendingEvents()) != 0 {
		t.Error("Clone must not carry pending events")
	}
}

func TestSentinelsDoNotMatchEachOther(t *testing.T) {
	sentinels := map[string]error{
		"confirm":    ErrNotPendingConfirm,
		"decline":    ErrNotPendingDecline,
		"edit":       ErrNotPendingEdit,
		"reopen":     ErrNotCancelledReopen,
		"convert":    ErrNotConfirmedConvert,
		"cancel":     ErrCannotCancel,
		"client":     ErrClientRequired,
		"event type": ErrEventTypeRequired,
		"location":   ErrLocationRequired,
	}
	for name, err := range sentinels {
		for other, target := range sentinels {
			if name != other && errors.Is(err, target) {
				t.Errorf("%s error matches %s error", name, other)
			}
		}
	}
	if !errors.Is(ErrNotPendingDecline.Wrap(errors.New("cause")), ErrNotPendingDecline) {
		t.Error("wrapped sentinel no longer matches itself")
	}
}
