package uow

import (
	"context"

	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
)

// UnitOfWork is one transaction over every repository the engine writes.
// Nothing written through it is visible to other units before Commit.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Slots() domainavailability.Repository
	Engagements() domainrecords.EngagementRepository
	FinancialRecords() domainrecords.FinancialRepository
	LegalRecords() domainrecords.LegalRepository

	// LockResource blocks until this unit is the only writer of the
	// resource's schedule; the lock is released when the unit ends.
	LockResource(ctx context.Context, resourceID string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
