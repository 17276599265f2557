package availability

import (
	"time"

	"shutterbook/internal/domain/shared/timerange"
)

// WeeklyPlan describes a recurring weekly window for one resource.
type WeeklyPlan struct {
	ResourceID ResourceID
	Weekday    time.Weekday
	From       timerange.TimeOfDay
	To         timerange.TimeOfDay
	Until      time.Time
}

func (p WeeklyPlan) Validate(now time.Time) error {
	if p.ResourceID == "" {
		return ErrResourceRequired
	}
	if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
		return ErrInvalidInterval
	}
	if p.To <= p.From {
		return ErrInvalidInterval
	}
	// Occurrences start after today, so an until of today yields nothing.
	if !timerange.DateOf(p.Until).After(timerange.DateOf(now)) {
		return ErrInvalidUntilDate
	}
	return nil
}

// Occurrences lists the windows of the plan. The first occurrence is on the
// first date strictly after today's date that falls on Weekday; the last is
// on or before Until.
func (p WeeklyPlan) Occurrences(now time.Time) []timerange.Range {
	today := timerange.DateOf(now.UTC())
	ahead := (int(p.Weekday) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	last := timerange.DateOf(p.Until.UTC())
	var out []timerange.Range
	for day := today.AddDate(0, 0, ahead); !day.After(last); day = day.AddDate(0, 0, 7) {
		out = append(out, timerange.Range{Start: p.From.On(day), End: p.To.On(day)})
	}
	return out
}
