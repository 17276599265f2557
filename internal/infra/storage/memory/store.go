package memory

import (
	"context"
	"errors"
	"sync"

	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
)

var (
	ErrReadOnly   = errors.New("memory: unit of work is read-only")
	ErrUnitClosed = errors.New("memory: unit of work already finished")
)

// Store keeps every aggregate in process. Write units are serialized and
// work on a private copy that replaces the shared state on commit, so a
// rollback leaves nothing behind.
type Store struct {
	writer  chan struct{}
	mu      sync.RWMutex
	current *state
}

func NewStore() *Store {
	return &Store{writer: make(chan struct{}, 1), current: newState()}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if opts.ReadOnly {
		return &Unit{store: s, state: s.snapshot(), readOnly: true}, nil
	}
	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Unit{store: s, state: s.snapshot()}, nil
}

// Unit is a uow.UnitOfWork over a private copy of the store.
type Unit struct {
	store    *Store
	state    *state
	readOnly bool
	mu       sync.Mutex
	done     bool
}

func (u *Unit) Bookings() domainbooking.Repository { return bookingRepo{u} }

func (u *Unit) Slots() domainavailability.Repository { return slotRepo{u} }

func (u *Unit) Engagements() domainrecords.EngagementRepository { return engagementRepo{u} }

func (u *Unit) FinancialRecords() domainrecords.FinancialRepository { return financialRepo{u} }

func (u *Unit) LegalRecords() domainrecords.LegalRepository { return legalRepo{u} }

// LockResource is satisfied by construction: a write unit is already the
// only writer of the whole store.
func (u *Unit) LockResource(ctx context.Context, resourceID string) error {
	if u.readOnly {
		return ErrReadOnly
	}
	return u.live()
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}
	u.store.mu.Lock()
	u.store.current = u.state
	u.store.mu.Unlock()
	<-u.store.writer
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if !u.readOnly {
		<-u.store.writer
	}
	return nil
}

func (u *Unit) live() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	return nil
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnly
	}
	return u.live()
}

var _ uow.UoWFactory = (*Store)(nil)
