package storage

// Event store, read model y directorio de compañías sobre SQLite.
//
// Estrategia:
//   - `events`: append-only. UNIQUE(aggregate_id, version) es el punto de
//     serialización: dos procesos que compiten por la misma versión no
//     pueden escribir ambos.
//   - `latest_news`: read model, UNA fila por noticia (UPSERT guardado por
//     stream_version para no retroceder).
//   - `companies`: directorio de tickers seguidos, sembrado desde config.
//   - Las fechas se guardan como TEXT en UTC con ancho fijo para que el
//     orden lexicográfico coincida con el cronológico.

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
-- Streams de eventos: append-only, nunca se actualizan
CREATE TABLE IF NOT EXISTS events (
    event_id     TEXT PRIMARY KEY,
    aggregate_id TEXT    NOT NULL,
    version      INTEGER NOT NULL,
    type         TEXT    NOT NULL,
    occurred_at  TEXT    NOT NULL,
    stored_at    TEXT    NOT NULL,
    payload      TEXT    NOT NULL,
    UNIQUE (aggregate_id, version)
);

-- Read model: una fila por noticia puntuada
CREATE TABLE IF NOT EXISTS latest_news (
    news_id          TEXT PRIMARY KEY,
    ticker           TEXT    NOT NULL,
    published_at     TEXT    NOT NULL,
    title            TEXT    NOT NULL DEFAULT '',
    url              TEXT    NOT NULL DEFAULT '',
    score            INTEGER NOT NULL,
    interpretation   TEXT    NOT NULL,
    percentage_range TEXT    NOT NULL,
    stream_version   INTEGER NOT NULL DEFAULT 0,
    updated_at       TEXT    NOT NULL
);

-- Directorio de compañías seguidas
CREATE TABLE IF NOT EXISTS companies (
    id     TEXT PRIMARY KEY,
    ticker TEXT NOT NULL UNIQUE,
    name   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_ticker_date ON latest_news(ticker, published_at DESC);
`

// timeLayout tiene ancho fijo (nanosegundos siempre presentes).
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage abre la base de datos y reparte los repositorios que la usan.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	// Otros procesos sobre el mismo fichero esperan en lugar de fallar con SQLITE_BUSY.
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// EventStore devuelve el event store respaldado por esta base de datos.
func (s *SQLiteStorage) EventStore() *SQLiteEventStore {
	return &SQLiteEventStore{db: s.db, now: time.Now}
}

// ReadModel devuelve el read model de noticias.
func (s *SQLiteStorage) ReadModel() *SQLiteReadModel {
	return &SQLiteReadModel{db: s.db, now: time.Now}
}

// Directory devuelve el directorio de compañías.
func (s *SQLiteStorage) Directory() *SQLiteDirectory {
	return &SQLiteDirectory{db: s.db}
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// isUniqueViolation detecta la violación de UNIQUE(aggregate_id, version).
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// unavailable envuelve un error del driver como fallo de almacenamiento.
func unavailable(op string, err error) error {
	return fmt.Errorf("storage.%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
