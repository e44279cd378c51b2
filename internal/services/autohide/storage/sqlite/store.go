package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/autohidehost/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides the SQLite-backed attempt journal.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the attempt journal and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordAttempt persists one finished attempt.
func (s *Store) RecordAttempt(ctx context.Context, attempt storage.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	attempt.AttemptID = strings.TrimSpace(attempt.AttemptID)
	attempt.Outcome = strings.TrimSpace(attempt.Outcome)
	attempt.AbortReason = strings.TrimSpace(attempt.AbortReason)
	attempt.Phase = strings.TrimSpace(attempt.Phase)
	attempt.Bed = strings.TrimSpace(attempt.Bed)
	attempt.Error = strings.TrimSpace(attempt.Error)
	if attempt.AttemptID == "" {
		return fmt.Errorf("attempt id is required")
	}
	if attempt.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if attempt.Phase == "" {
		return fmt.Errorf("phase is required")
	}
	if attempt.Participants < 0 {
		return fmt.Errorf("participants must not be negative")
	}
	if attempt.FinishedAt.IsZero() {
		attempt.FinishedAt = time.Now().UTC()
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = attempt.FinishedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO transition_attempts (
	attempt_id,
	outcome,
	abort_reason,
	phase,
	participants,
	bed,
	last_error,
	started_at,
	finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		attempt.AttemptID,
		attempt.Outcome,
		attempt.AbortReason,
		attempt.Phase,
		attempt.Participants,
		attempt.Bed,
		attempt.Error,
		attempt.StartedAt.UTC().UnixMilli(),
		attempt.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts lists newest-first attempt records.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	attempt_id,
	outcome,
	abort_reason,
	phase,
	participants,
	bed,
	last_error,
	started_at,
	finished_at
FROM transition_attempts
ORDER BY finished_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	records := make([]storage.AttemptRecord, 0, limit)
	for rows.Next() {
		var record storage.AttemptRecord
		var startedAt, finishedAt int64
		if err := rows.Scan(
			&record.ID,
			&record.AttemptID,
			&record.Outcome,
			&record.AbortReason,
			&record.Phase,
			&record.Participants,
			&record.Bed,
			&record.Error,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		record.StartedAt = time.UnixMilli(startedAt).UTC()
		record.FinishedAt = time.UnixMilli(finishedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return records, nil
}

var _ storage.AttemptStore = (*Store)(nil)
