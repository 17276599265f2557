package invoicing

import (
	"context"
	"testing"
	"time"

	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/infra/storage/memory"
)

func TestCreateDraftNumbersSequentially(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	gen := Generator{Clock: func() time.Time { return time.Date(2030, 6, 4, 9, 0, 0, 0, time.UTC) }}

	var numbers []string
	for i := 0; i < 2; i++ {
		ref, err := gen.CreateDraft(ctx, policies.DraftRequest{
			ClientID:     "c-1",
			EngagementID: "e-1",
			Amount:       money.Must(50000, "USD"),
			DueDate:      time.Date(2030, 6, 18, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("create draft: %v", err)
		}
		numbers = append(numbers, ref.Number)
	}
	if numbers[0] != "INV-203006-0001" || numbers[1] != "INV-203006-0002" {
		t.Fatalf("numbers = %v", numbers)
	}
	recs, err := unit.FinancialRecords().ByEngagement(ctx, "e-1")
	if err != nil || len(recs) != 2 {
		t.Fatalf("records = %d, err %v", len(recs), err)
	}
	if recs[0].Status != "Draft" {
		t.Fatalf("status = %q", recs[0].Status)
	}
	_ = unit.Rollback(ctx)
}

func TestCreateDraftRequiresUnitOfWork(t *testing.T) {
	_, err := Generator{}.CreateDraft(context.Background(), policies.DraftRequest{EngagementID: "e-1"})
	if err != uow.ErrUnitOfWorkMissing {
		t.Fatalf("err = %v", err)
	}
}
