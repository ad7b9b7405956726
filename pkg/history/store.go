// Package history keeps device-reported field values in SQLite so the
// dashboard can plot recent readings.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

// DefaultLimit caps Query results when no limit is given.
const DefaultLimit = 1000

// Point is one recorded value.
type Point struct {
	Field field.ID  `json:"field"`
	At    time.Time `json:"at"`
	Value any       `json:"value"`
}

// Store provides SQLite persistence for field values.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens the database at dbPath. Use ":memory:" for an in-memory
// database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		field TEXT NOT NULL,
		at_ns INTEGER NOT NULL,
		value REAL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_field_at ON readings(field, at_ns);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one value. Booleans are stored as 0/1, nil as NULL.
func (s *Store) Record(id field.ID, at time.Time, value any) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", field.ErrUnknownField, id)
	}
	v, err := encodeValue(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT INTO readings (field, at_ns, value) VALUES (?, ?, ?)`,
		id.Key(), at.UnixNano(), v)
	return err
}

// Query returns the values of a field recorded in [since, until), oldest
// first. Zero times leave the range open; limit <= 0 uses DefaultLimit and
// keeps the newest points.
func (s *Store) Query(id field.ID, since, until time.Time, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	lo := int64(0)
	if !since.IsZero() {
		lo = since.UnixNano()
	}
	hi := int64(1<<63 - 1)
	if !until.IsZero() {
		hi = until.UnixNano()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT at_ns, value FROM (
			SELECT id, at_ns, value FROM readings
			WHERE field = ? AND at_ns >= ? AND at_ns < ?
			ORDER BY at_ns DESC, id DESC
			LIMIT ?
		) ORDER BY at_ns ASC, id ASC
	`, id.Key(), lo, hi, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var atNs int64
		var value sql.NullFloat64
		if err := rows.Scan(&atNs, &value); err != nil {
			return nil, err
		}
		points = append(points, Point{
			Field: id,
			At:    time.Unix(0, atNs).UTC(),
			Value: decodeValue(id, value),
		})
	}
	return points, rows.Err()
}

// Prune deletes values recorded before cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM readings WHERE at_ns < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored values.
func (s *Store) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}

func encodeValue(v any) (sql.NullFloat64, error) {
	switch n := v.(type) {
	case nil:
		return sql.NullFloat64{}, nil
	case bool:
		if n {
			return sql.NullFloat64{Float64: 1, Valid: true}, nil
		}
		return sql.NullFloat64{Float64: 0, Valid: true}, nil
	case float64:
		return sql.NullFloat64{Float64: n, Valid: true}, nil
	default:
		return sql.NullFloat64{}, fmt.Errorf("%w: cannot record %T", field.ErrValueType, v)
	}
}

func decodeValue(id field.ID, v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	if id.Kind().Discrete() {
		return v.Float64 != 0
	}
	return v.Float64
}
