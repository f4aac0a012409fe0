package deliverylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/hookgate/internal/storage"
)

// SQLiteStore keeps deliveries in the deliveries and delivery_notes tables.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens the database at path and bootstraps the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already bootstrapped database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Record upserts the delivery and appends a received note in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, id string, header http.Header, body []byte) error {
	if err := checkID(id); err != nil {
		return err
	}

	headersJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	if body == nil {
		body = []byte{}
	}
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO deliveries(id, received_at, headers, body)
VALUES(?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  received_at = excluded.received_at,
  headers     = excluded.headers,
  body        = excluded.body,
  attempts    = deliveries.attempts + 1;`, id, now, string(headersJSON), body)
	if err != nil {
		return fmt.Errorf("upsert delivery %q: %w", id, err)
	}

	if err := insertNote(ctx, tx, id, now, receivedNote(body)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delivery %q: %w", id, err)
	}
	return nil
}

// Annotate appends line to an existing delivery.
func (s *SQLiteStore) Annotate(ctx context.Context, id, line string) error {
	if err := checkID(id); err != nil {
		return err
	}

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM deliveries WHERE id = ?;`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("lookup delivery %q: %w", id, err)
	}

	return insertNote(ctx, s.db, id, s.now().UTC().Format(timeLayout), line)
}

// Get loads a delivery with its notes in insertion order.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var (
		receivedAt  string
		headersJSON string
		body        []byte
	)
	err := s.db.QueryRowContext(ctx, `
SELECT received_at, headers, body FROM deliveries WHERE id = ?;`, id).Scan(&receivedAt, &headersJSON, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery %q: %w", id, err)
	}

	rec := &Record{ID: id, Body: body, Header: http.Header{}}
	if rec.ReceivedAt, err = time.Parse(timeLayout, receivedAt); err != nil {
		return nil, fmt.Errorf("parse received_at for %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(headersJSON), &rec.Header); err != nil {
		return nil, fmt.Errorf("decode headers for %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT created_at, line FROM delivery_notes
WHERE delivery_id = ?
ORDER BY created_at ASC, rowid ASC;`, id)
	if err != nil {
		return nil, fmt.Errorf("load notes for %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var createdAt, line string
		if err := rows.Scan(&createdAt, &line); err != nil {
			return nil, fmt.Errorf("scan note for %q: %w", id, err)
		}
		at, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse note time for %q: %w", id, err)
		}
		rec.Notes = append(rec.Notes, Note{At: at, Line: line})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes for %q: %w", id, err)
	}
	return rec, nil
}

// List returns the most recently received deliveries first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
SELECT d.id, d.received_at, length(d.body),
	COALESCE((SELECT n.line FROM delivery_notes n WHERE n.delivery_id = d.id
		ORDER BY n.created_at DESC, n.rowid DESC LIMIT 1), '')
FROM deliveries d
ORDER BY d.received_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum        Summary
			receivedAt string
		)
		if err := rows.Scan(&sum.ID, &receivedAt, &sum.Size, &sum.LastNote); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if sum.ReceivedAt, err = time.Parse(timeLayout, receivedAt); err != nil {
			return nil, fmt.Errorf("parse received_at for %q: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNote(ctx context.Context, db execer, id, at, line string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO delivery_notes(id, delivery_id, created_at, line)
VALUES(?, ?, ?, ?);`, uuid.NewString(), id, at, sanitizeLine(line))
	if err != nil {
		return fmt.Errorf("insert note for %q: %w", id, err)
	}
	return nil
}
