package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	domainrecords "shutterbook/internal/domain/records"
)

// Generator writes draft financial records numbered INV-YYYYMM-NNNN, the
// sequence restarting every month.
type Generator struct {
	Clock func() time.Time
	IDs   func() string
}

func (g Generator) CreateDraft(ctx context.Context, req policies.DraftRequest) (policies.FinancialRecordRef, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return policies.FinancialRecordRef{}, err
	}
	if req.EngagementID == "" {
		return policies.FinancialRecordRef{}, domainrecords.ErrEngagementRequired
	}
	now := g.now()
	prefix := fmt.Sprintf("INV-%s-", now.Format("200601"))
	// Numbering is serialized per month so concurrent drafts never share a number.
	if err := unit.LockResource(ctx, "invoice-sequence:"+prefix); err != nil {
		return policies.FinancialRecordRef{}, err
	}
	n, err := unit.FinancialRecords().Count(ctx, prefix)
	if err != nil {
		return policies.FinancialRecordRef{}, err
	}
	rec := &domainrecords.FinancialRecord{
		ID:           g.newID(),
		Number:       fmt.Sprintf("%s%04d", prefix, n+1),
		ClientID:     req.ClientID,
		EngagementID: req.EngagementID,
		Amount:       req.Amount,
		Status:       domainrecords.FinancialDraft,
		DueDate:      req.DueDate.UTC(),
		Notes:        req.Notes,
		CreatedAt:    now,
	}
	if err := unit.FinancialRecords().Insert(ctx, rec); err != nil {
		return policies.FinancialRecordRef{}, err
	}
	return policies.FinancialRecordRef{ID: rec.ID, Number: rec.Number}, nil
}

func (g Generator) now() time.Time {
	if g.Clock != nil {
		return g.Clock().UTC()
	}
	return time.Now().UTC()
}

func (g Generator) newID() string {
	if g.IDs != nil {
		return g.IDs()
	}
	return uuid.NewString()
}

var _ policies.FinancialRecordGenerator = Generator{}
