package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS preview_history (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	type         TEXT NOT NULL,
	compression  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	field_count  INTEGER NOT NULL DEFAULT 0,
	record_count INTEGER NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	client_ip    TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS preview_history_created_at_idx ON preview_history (created_at DESC);
`

const selectColumns = `id, source, type, compression, status, field_count, record_count,
	duration_ms, client_ip, user_agent, created_at`

// PostgresStore keeps history in the preview_history table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create preview_history: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preview_history
			(id, source, type, compression, status, field_count, record_count,
			 duration_ms, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Source, e.Type, e.Compression, e.Status, e.FieldCount, e.RecordCount,
		e.DurationMs, e.ClientIP, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert preview history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit of zero or
// less returns every entry.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var n any
	if limit > 0 {
		n = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM preview_history ORDER BY created_at DESC LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query preview history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan preview history: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM preview_history WHERE id = $1`,
		id,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("query preview history: %w", err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Entry])
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan preview history: %w", err)
	}
	return entry, nil
}

// PurgeOlderThan deletes entries created more than age ago.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM preview_history WHERE created_at < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("purge preview history: %w", err)
	}
	return tag.RowsAffected(), nil
}
