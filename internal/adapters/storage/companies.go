package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// SQLiteDirectory implementa ports.CompanyDirectory.
type SQLiteDirectory struct {
	db *sql.DB
}

// Resolve busca la compañía por ticker (sin distinguir mayúsculas).
func (d *SQLiteDirectory) Resolve(ctx context.Context, ticker string) (domain.Company, error) {
	var c domain.Company
	err := d.db.QueryRowContext(ctx,
		`SELECT id, ticker, name FROM companies WHERE ticker = ?`, domain.NormalizeTicker(ticker),
	).Scan(&c.ID, &c.Ticker, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, fmt.Errorf("company %q: %w", ticker, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Company{}, unavailable("Resolve", err)
	}
	return c, nil
}

// List devuelve todas las compañías ordenadas por ticker.
func (d *SQLiteDirectory) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, ticker, name FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, unavailable("List: query", err)
	}
	defer rows.Close()

	out := make([]domain.Company, 0)
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Name); err != nil {
			return nil, unavailable("List: scan row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists devuelve true si hay una compañía con ese id.
func (d *SQLiteDirectory) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE id = ?`, id).Scan(&n); err != nil {
		return false, unavailable("Exists", err)
	}
	return n > 0, nil
}

// Save inserta o actualiza la compañía. El ticker es único: registrar un
// ticker existente con otro id sustituye la fila anterior.
func (d *SQLiteDirectory) Save(ctx context.Context, c domain.Company) error {
	if c.Ticker == "" {
		return fmt.Errorf("storage.Save: %w: empty ticker", domain.ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = c.Ticker
	}
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO companies (id, ticker, name) VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET id = excluded.id, name = excluded.name
	`, c.ID, domain.NormalizeTicker(c.Ticker), c.Name); err != nil {
		return unavailable("Save company "+c.Ticker, err)
	}
	return nil
}

// Seed registra las compañías dadas; se usa al arrancar con la lista de config.
func (d *SQLiteDirectory) Seed(ctx context.Context, companies []domain.Company) error {
	for _, c := range companies {
		if err := d.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
