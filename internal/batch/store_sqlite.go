package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"piiguard/internal/core"
)

// SQLiteStore stores batches in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the batches table and indexes if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			total_records INTEGER NOT NULL DEFAULT 0,
			pii_records INTEGER NOT NULL DEFAULT 0,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize batches schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Create inserts a new batch.
func (s *SQLiteStore) Create(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (id, created_at, updated_at, status, source, total_records, pii_records, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, batch.ID, batch.CreatedAt, time.Now().Unix(), batch.Status, batch.Source,
		batch.Summary.Total, batch.Summary.PII, string(payload))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Get returns a batch by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Batch, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM batches WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return decodeBatch([]byte(payload))
}

// List returns batches ordered by created_at desc, id desc.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*core.Batch, error) {
	limit := normalizeLimit(opts.Limit)

	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.After != "" {
		var cursorCreatedAt int64
		err := s.db.QueryRowContext(ctx, "SELECT created_at FROM batches WHERE id = ?", opts.After).Scan(&cursorCreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query after cursor: %w", err)
		}
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, cursorCreatedAt, cursorCreatedAt, opts.After)
	}

	query := "SELECT data FROM batches"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	items := make([]*core.Batch, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batch, err := decodeBatch([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode batch row: %w", err)
		}
		items = append(items, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}
	return items, nil
}

// DeleteCreatedBefore removes batches created before cutoff.
func (s *SQLiteStore) DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM batches WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired batches: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read delete rows affected: %w", err)
	}
	return n, nil
}

// Update replaces a stored batch object.
func (s *SQLiteStore) Update(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET updated_at = ?, status = ?, total_records = ?, pii_records = ?, data = ?
		WHERE id = ?
	`, time.Now().Unix(), batch.Status, batch.Summary.Total, batch.Summary.PII, string(payload), batch.ID)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read update rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; DB lifecycle is managed by storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}
