package records

import (
	"fmt"
	"strings"
	"time"

	"shutterbook/internal/domain/shared/money"
)

const defaultRequirements = "No special requirements were specified for this engagement."

// ContractTerms are the values substituted into the legal record template.
type ContractTerms struct {
	EventType    string
	Date         time.Time
	Start        time.Time
	End          time.Time
	Location     string
	Hours        int
	Minutes      int
	Price        money.Money
	Requirements string
}

func (t ContractTerms) Title() string {
	return fmt.Sprintf("Photography Services Agreement - %s - %s", t.EventType, t.Date.Format("2006-01-02"))
}

// Render fills the fixed agreement template.
func (t ContractTerms) Render() string {
	req := strings.TrimSpace(t.Requirements)
	if req == "" {
		req = defaultRequirements
	}
	var b strings.Builder
	b.WriteString("PHOTOGRAPHY SERVICES AGREEMENT\n\n")
	fmt.Fprintf(&b, "Event: %s\n", t.EventType)
	fmt.Fprintf(&b, "Date: %s\n", t.Date.Format("Monday, 2 January 2006"))
	fmt.Fprintf(&b, "Time: %s - %s\n", t.Start.Format("15:04"), t.End.Format("15:04"))
	fmt.Fprintf(&b, "Location: %s\n", t.Location)
	fmt.Fprintf(&b, "Duration: %s\n", formatDuration(t.Hours, t.Minutes))
	fmt.Fprintf(&b, "Fee: %s\n\n", t.Price)
	b.WriteString("Special requirements:\n")
	b.WriteString(req)
	b.WriteString("\n\n")
	b.WriteString("The photographer agrees to provide coverage of the event described above. ")
	b.WriteString("The client agrees to pay the fee stated above according to the attached invoice.\n")
	return b.String()
}

func formatDuration(hours, minutes int) string {
	switch {
	case minutes == 0:
		return fmt.Sprintf("%d hours", hours)
	case hours == 0:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	}
}

type NewLegalParams struct {
	ID           string
	ClientID     string
	EngagementID string
	Terms        ContractTerms
	CreatedAt    time.Time
}

func NewLegalRecord(p NewLegalParams) (*LegalRecord, error) {
	if strings.TrimSpace(p.EngagementID) == "" {
		return nil, ErrEngagementRequired
	}
	return &LegalRecord{
		ID:           p.ID,
		ClientID:     p.ClientID,
		EngagementID: p.EngagementID,
		Title:        p.Terms.Title(),
		Content:      p.Terms.Render(),
		Status:       LegalDraft,
		CreatedAt:    p.CreatedAt.UTC(),
	}, nil
}
