package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"piiguard/internal/core"
)

// PostgreSQLStore stores batches in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the batches table and indexes if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			total_records INTEGER NOT NULL DEFAULT 0,
			pii_records INTEGER NOT NULL DEFAULT 0,
			data JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize batches schema: %w", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// Create inserts a new batch.
func (s *PostgreSQLStore) Create(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO batches (id, created_at, updated_at, status, source, total_records, pii_records, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, batch.ID, batch.CreatedAt, time.Now().Unix(), batch.Status, batch.Source,
		batch.Summary.Total, batch.Summary.PII, payload)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Get returns a batch by id.
func (s *PostgreSQLStore) Get(ctx context.Context, id string) (*core.Batch, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM batches WHERE id = $1", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query batch: %w", err)
	}
	return decodeBatch(payload)
}

// List returns batches ordered by created_at desc, id desc.
func (s *PostgreSQLStore) List(ctx context.Context, opts ListOptions) ([]*core.Batch, error) {
	limit := normalizeLimit(opts.Limit)

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Status != "" {
		where = append(where, "status = "+arg(opts.Status))
	}
	if opts.After != "" {
		var cursorCreatedAt int64
		err := s.pool.QueryRow(ctx, "SELECT created_at FROM batches WHERE id = $1", opts.After).Scan(&cursorCreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query after cursor: %w", err)
		}
		ts := arg(cursorCreatedAt)
		where = append(where, fmt.Sprintf("(created_at < %s OR (created_at = %s AND id < %s))", ts, ts, arg(opts.After)))
	}

	query := "SELECT data FROM batches"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	items := make([]*core.Batch, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batch, err := decodeBatch(payload)
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
func (s *PostgreSQLStore) DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error) {
	cmd, err := s.pool.Exec(ctx, "DELETE FROM batches WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired batches: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Update replaces a stored batch object.
func (s *PostgreSQLStore) Update(ctx context.Context, batch *core.Batch) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	cmd, err := s.pool.Exec(ctx, `
		UPDATE batches
		SET updated_at = $1, status = $2, total_records = $3, pii_records = $4, data = $5::jsonb
		WHERE id = $6
	`, time.Now().Unix(), batch.Status, batch.Summary.Total, batch.Summary.PII, payload, batch.ID)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; pool lifecycle is managed by storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}
