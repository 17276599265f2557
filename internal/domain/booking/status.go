package booking

// Status is the closed set of states a booking request moves through.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusDeclined  Status = "Declined"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// transitions is the only place allowed moves are declared.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusDeclined, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: {StatusConfirmed},
}

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusDeclined, StatusCancelled, StatusCompleted}

func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(raw string) (Status, bool) {
	for _, s := range allStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Label is the human description shown next to a status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Awaiting review"
	case StatusConfirmed:
		return "Confirmed, photographer assigned"
	case StatusDeclined:
		return "Declined"
	case StatusCancelled:
		return "Cancelled"
	case StatusCompleted:
		return "Converted to a scheduled shoot"
	default:
		return "Unknown"
	}
}
