package sqldb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
)

//go:embed schema.sql
var schema string

var (
	ErrReadOnly       = errors.New("sqldb: unit of work is read-only")
	ErrUnknownDialect = errors.New("sqldb: unknown dialect")
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Dialect captures what differs between the supported engines.
type Dialect struct {
	Name       string
	Driver     string
	LockQuery  string // takes the resource id; empty when write units are already exclusive
	ForUpdate  string
	ReadOnlyTx bool
}

var (
	Postgres = Dialect{
		Name:       "postgres",
		Driver:     "postgres",
		LockQuery:  "SELECT pg_advisory_xact_lock(hashtext(?))",
		ForUpdate:  " FOR UPDATE",
		ReadOnlyTx: true,
	}
	// SQLite runs on a single connection, so every unit of work is exclusive.
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
	}
)

func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

// Store is the relational UnitOfWork factory.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db, dialect: Postgres}, nil
}

// OpenSQLite opens path, creating the database file when missing.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.ConnectContext(ctx, SQLite.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, dialect: SQLite}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqldb: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	txOpts := &sql.TxOptions{ReadOnly: opts.ReadOnly && s.dialect.ReadOnlyTx}
	tx, err := s.db.BeginTxx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("sqldb: begin: %w", err)
	}
	return &Unit{store: s, tx: tx, readOnly: opts.ReadOnly}, nil
}

// queryer returns the transaction of the unit in ctx when it belongs to this
// store, so lookups made inside a unit of work see its writes and never
// wait on a second connection.
func (s *Store) queryer(ctx context.Context) sqlx.ExtContext {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok && u.store == s {
			return u.tx
		}
	}
	return s.db
}

type Unit struct {
	store    *Store
	tx       *sqlx.Tx
	readOnly bool
}

func (u *Unit) Bookings() domainbooking.Repository { return bookingRepo{u} }

func (u *Unit) Slots() domainavailability.Repository { return slotRepo{u} }

func (u *Unit) Engagements() domainrecords.EngagementRepository { return engagementRepo{u} }

func (u *Unit) FinancialRecords() domainrecords.FinancialRepository { return financialRepo{u} }

func (u *Unit) LegalRecords() domainrecords.LegalRepository { return legalRepo{u} }

// LockResource takes a transaction-scoped advisory lock on the resource.
func (u *Unit) LockResource(ctx context.Context, resourceID string) error {
	if u.readOnly {
		return ErrReadOnly
	}
	if u.store.dialect.LockQuery == "" {
		return nil
	}
	if _, err := u.tx.ExecContext(ctx, u.tx.Rebind(u.store.dialect.LockQuery), resourceID); err != nil {
		return fmt.Errorf("sqldb: lock resource %s: %w", resourceID, err)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: commit: %w", err)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqldb: rollback: %w", err)
	}
	return nil
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (u *Unit) get(ctx context.Context, dest any, query string, args ...any) error {
	return u.tx.GetContext(ctx, dest, u.tx.Rebind(query), args...)
}

func (u *Unit) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return u.tx.SelectContext(ctx, dest, u.tx.Rebind(query), args...)
}

func (u *Unit) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := u.tx.ExecContext(ctx, u.tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
