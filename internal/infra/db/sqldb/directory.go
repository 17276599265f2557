package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"shutterbook/internal/app/policies"
	"shutterbook/internal/domain/shared/money"
)

// Directory answers client, photographer and package lookups from the
// reference tables.
type Directory struct {
	store *Store
}

func NewDirectory(store *Store) *Directory { return &Directory{store: store} }

func (d *Directory) exists(ctx context.Context, query, id string) (bool, error) {
	q := d.store.queryer(ctx)
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(query), id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Directory) ClientExists(ctx context.Context, id string) (bool, error) {
	ok, err := d.exists(ctx, `SELECT COUNT(*) FROM clients WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqldb: client lookup: %w", err)
	}
	return ok, nil
}

func (d *Directory) ResourceExists(ctx context.Context, id string) (bool, error) {
	ok, err := d.exists(ctx, `SELECT COUNT(*) FROM photographers WHERE id = ? AND active = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("sqldb: photographer lookup: %w", err)
	}
	return ok, nil
}

func (d *Directory) PackagePrice(ctx context.Context, id string) (money.Money, bool, error) {
	q := d.store.queryer(ctx)
	var row struct {
		Amount   sql.NullInt64  `db:"price_amount"`
		Currency sql.NullString `db:"price_currency"`
	}
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT price_amount, price_currency FROM packages WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return money.Money{}, false, nil
	}
	if err != nil {
		return money.Money{}, false, fmt.Errorf("sqldb: package lookup: %w", err)
	}
	if !row.Amount.Valid || !row.Currency.Valid {
		return money.Money{}, false, nil
	}
	return money.Money{Amount: row.Amount.Int64, Currency: row.Currency.String}, true, nil
}

func (d *Directory) upsert(ctx context.Context, query string, args ...any) error {
	q := d.store.queryer(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(query), args...)
	return err
}

func (d *Directory) AddClient(ctx context.Context, id, name string) error {
	return d.upsert(ctx, `INSERT INTO clients (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`, id, name)
}

func (d *Directory) AddResource(ctx context.Context, id, name string) error {
	return d.upsert(ctx, `INSERT INTO photographers (id, name, active) VALUES (?, ?, TRUE)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, active = TRUE`, id, name)
}

// RetireResource keeps the row but stops the photographer from being
// assigned.
func (d *Directory) RetireResource(ctx context.Context, id string) error {
	return d.upsert(ctx, `UPDATE photographers SET active = FALSE WHERE id = ?`, id)
}

func (d *Directory) AddPackage(ctx context.Context, id, name string, price *money.Money) error {
	var amount sql.NullInt64
	var currency sql.NullString
	if price != nil {
		amount = sql.NullInt64{Int64: price.Amount, Valid: true}
		currency = sql.NullString{String: price.Currency, Valid: true}
	}
	return d.upsert(ctx, `INSERT INTO packages (id, name, price_amount, price_currency) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, price_amount = excluded.price_amount,
		price_currency = excluded.price_currency`, id, name, amount, currency)
}

var (
	_ policies.ClientDirectory   = (*Directory)(nil)
	_ policies.ResourceDirectory = (*Directory)(nil)
	_ policies.PackageCatalog    = (*Directory)(nil)
)
