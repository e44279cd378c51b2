package storage

import (
	"context"
	"time"
)

// AttemptRecord is one durable day-transition attempt outcome.
type AttemptRecord struct {
	ID           int64
	AttemptID    string
	Outcome      string
	AbortReason  string
	Phase        string
	Participants int
	Bed          string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// AttemptStore persists day-transition attempt records.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}
