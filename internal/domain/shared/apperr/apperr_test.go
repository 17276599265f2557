package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	sentinel := Conflict("OverlapConflict", "overlap")
	wrapped := fmt.Errorf("create slot: %w", sentinel)

	if !errors.Is(wrapped, sentinel) {
		t.Fatal("wrapped sentinel must match with errors.Is")
	}
	if !errors.Is(New(KindConflict, "OverlapConflict", "rebuilt"), sentinel) {
		t.Error("same kind and code must match")
	}
	if errors.Is(Conflict("DuplicateReference", "dup"), sentinel) {
		t.Error("different code must not match")
	}
	if errors.Is(Validation("OverlapConflict", "x"), sentinel) {
		t.Error("different kind must not match")
	}
}

func TestKindAndCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantOK   bool
		wantCode string
	}{
		{"validation", Validation("PastDate", "past"), KindValidation, true, "PastDate"},
		{"wrapped precondition", fmt.Errorf("convert: %w", Precondition("NoResourceAssigned", "none")), KindPrecondition, true, "NoResourceAssigned"},
		{"infrastructure", errors.New("connection refused"), "", false, ""},
		{"with cause", NotFound("NotFound", "missing").Wrap(errors.New("no rows")), KindNotFound, true, "NotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			if ok != tt.wantOK || kind != tt.wantKind {
				t.Errorf("KindOf() = %q, %v; want %q, %v", kind, ok, tt.wantKind, tt.wantOK)
			}
			if got := CodeOf(tt.err); got != tt.wantCode {
				t.Errorf("CodeOf() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestWithfKeepsIdentity(t *testing.T) {
	base := NotFound("ResourceNotFound", "photographer not found")
	detailed := base.Withf("id %s", "ph-1")
	if detailed.Error() != "photographer not found: id ph-1" {
		t.Errorf("Error() = %q", detailed.Error())
	}
	if !errors.Is(detailed, base) {
		t.Error("Withf copy must still match the sentinel")
	}
}
