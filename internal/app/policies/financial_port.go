package policies

import (
	"context"
	"time"

	"shutterbook/internal/domain/shared/money"
)

type DraftRequest struct {
	ClientID     string
	EngagementID string
	Amount       money.Money
	DueDate      time.Time
	Notes        string
}

type FinancialRecordRef struct {
	ID     string
	Number string
}

// FinancialRecordGenerator creates draft financial records. Numbering is
// entirely its concern. Implementations must write through the unit of
// work in ctx so the draft rolls back with the caller.
type FinancialRecordGenerator interface {
	CreateDraft(ctx context.Context, req DraftRequest) (FinancialRecordRef, error)
}
