package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// SQLiteEventStore implementa ports.EventStore.
type SQLiteEventStore struct {
	db  *sql.DB
	now func() time.Time
}

// Append persiste el lote completo o nada.
//
// Dentro del proceso la conexión única serializa los appends; entre
// procesos, el índice UNIQUE(aggregate_id, version) rechaza al perdedor y
// la violación se traduce a ConflictError.
func (s *SQLiteEventStore) Append(ctx context.Context, aggregateID string, events []domain.DomainEvent, expectedVersion int) error {
	if err := domain.ValidateBatch(aggregateID, events, expectedVersion); err != nil {
		return fmt.Errorf("storage.Append: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("Append: begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE aggregate_id = ?`, aggregateID,
	).Scan(&current); err != nil {
		return unavailable("Append: read version", err)
	}
	if current != expectedVersion {
		return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: current}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (event_id, aggregate_id, version, type, occurred_at, stored_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return unavailable("Append: prepare", err)
	}
	defer stmt.Close()

	storedAt := formatTime(s.now())
	for _, e := range events {
		typ, payload, err := domain.EncodePayload(e.Payload)
		if err != nil {
			return fmt.Errorf("storage.Append: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID,
			e.AggregateID,
			e.Version,
			string(typ),
			formatTime(e.OccurredAt),
			storedAt,
			string(payload),
		); err != nil {
			if isUniqueViolation(err) {
				return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: e.Version + 1}
			}
			return unavailable(fmt.Sprintf("Append: insert %s v%d", aggregateID, e.Version), err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: expectedVersion + 1}
		}
		return unavailable("Append: commit", err)
	}
	return nil
}

// Events devuelve el stream ordenado por versión.
func (s *SQLiteEventStore) Events(ctx context.Context, aggregateID string) ([]domain.DomainEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, version, type, occurred_at, payload
		FROM events
		WHERE aggregate_id = ?
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, unavailable("Events: query", err)
	}
	defer rows.Close()

	events := make([]domain.DomainEvent, 0)
	for rows.Next() {
		var (
			e                      domain.DomainEvent
			typ, occurred, payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.Version, &typ, &occurred, &payload); err != nil {
			return nil, unavailable("Events: scan row", err)
		}
		if e.OccurredAt, err = parseTime(occurred); err != nil {
			return nil, fmt.Errorf("storage.Events: %w: occurred_at %q: %v", domain.ErrCorruptStream, occurred, err)
		}
		if e.Payload, err = domain.DecodePayload(domain.EventType(typ), []byte(payload)); err != nil {
			return nil, fmt.Errorf("storage.Events: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("Events: rows", err)
	}
	return events, nil
}
