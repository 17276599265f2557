package booking

import "testing"

func TestTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusDeclined}:    true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusCancelled, StatusConfirmed}: true,
	}
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
	for _, s := range []Status{StatusCompleted, StatusDeclined} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestParseStatusAndLabel(t *testing.T) {
	for _, s := range Statuses() {
		got, ok := ParseStatus(string(s))
		if !ok || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, ok)
		}
		if s.Label() == "Unknown" {
			t.Errorf("%s has no label", s)
		}
	}
	if _, ok := ParseStatus("pending"); ok {
		t.Error("status parsing is case sensitive")
	}
}

func TestReferenceFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		ref, err := NewReference(testNow)
		if err != nil {
			t.Fatal(err)
		}
		if len(ref) != len("BK-YYMMDD-NNNN") || !ref.Valid() {
			t.Fatalf("reference %q does not match BK-YYMMDD-NNNN", ref)
		}
	}
	for _, bad := range []string{"BK-2030-0001", "bk-300604-1234", "BK-300604-12345", "BK-300604-12a4"} {
		if LooksLikeReference(bad) {
			t.Errorf("%q should not be a reference", bad)
		}
	}
}
