package booking

import (
	"fmt"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const referenceDigits = "0123456789"

var referencePattern = regexp.MustCompile(`^BK-\d{6}-\d{4}$`)

// Reference is the human-readable booking identifier, BK-YYMMDD-NNNN.
type Reference string

// NewReference builds a reference for the day of now with a random 4-digit suffix.
func NewReference(now time.Time) (Reference, error) {
	suffix, err := gonanoid.Generate(referenceDigits, 4)
	if err != nil {
		return "", fmt.Errorf("booking: generate reference suffix: %w", err)
	}
	return Reference(fmt.Sprintf("BK-%s-%s", now.UTC().Format("060102"), suffix)), nil
}

func (r Reference) Valid() bool {
	return referencePattern.MatchString(string(r))
}

func (r Reference) String() string { return string(r) }

// LooksLikeReference lets lookups accept either an id or a reference.
func LooksLikeReference(s string) bool {
	return Reference(s).Valid()
}
