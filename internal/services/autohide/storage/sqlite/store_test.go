package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
)

func TestRecordAndListAttempts(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)

	if err := store.RecordAttempt(context.Background(), storage.AttemptRecord{
		AttemptID:    "a-1",
		Outcome:      "aborted",
		AbortReason:  "consensus_lost",
		Phase:        "PLACED",
		Participants: 2,
		Bed:          "FarmHouse (9, 9)",
		StartedAt:    now,
		FinishedAt:   now.Add(time.Second),
	}); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := store.RecordAttempt(context.Background(), storage.AttemptRecord{
		AttemptID:    "a-2",
		Outcome:      "completed",
		Phase:        "ADVANCING",
		Participants: 2,
		Bed:          "FarmHouse (9, 9)",
		StartedAt:    now.Add(time.Minute),
		FinishedAt:   now.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("record attempt second: %v", err)
	}

	attempts, err := store.ListAttempts(context.Background(), 10)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts len = %d, want 2", len(attempts))
	}
	if attempts[0].AttemptID != "a-2" || attempts[0].Outcome != "completed" {
		t.Fatalf("attempts[0] = %+v, want a-2 completed", attempts[0])
	}
	if attempts[1].AbortReason != "consensus_lost" {
		t.Fatalf("attempts[1].abort reason = %q, want %q", attempts[1].AbortReason, "consensus_lost")
	}
	if !attempts[1].StartedAt.Equal(now) {
		t.Fatalf("attempts[1].started at = %v, want %v", attempts[1].StartedAt, now)
	}
	if attempts[1].Participants != 2 {
		t.Fatalf("attempts[1].participants = %d, want 2", attempts[1].Participants)
	}
}

func TestListAttemptsRespectsLimit(t *testing.T) {
	store := openTempStore(t)
	base := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	for i, id := range []string{"a-1", "a-2", "a-3"} {
		if err := store.RecordAttempt(context.Background(), storage.AttemptRecord{
			AttemptID:  id,
			Outcome:    "completed",
			Phase:      "ADVANCING",
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	attempts, err := store.ListAttempts(context.Background(), 2)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts len = %d, want 2", len(attempts))
	}
	if attempts[0].AttemptID != "a-3" {
		t.Fatalf("attempts[0].attempt id = %q, want %q", attempts[0].AttemptID, "a-3")
	}
	if !attempts[0].StartedAt.Equal(attempts[0].FinishedAt) {
		t.Fatalf("started at = %v, want finished at %v", attempts[0].StartedAt, attempts[0].FinishedAt)
	}
}

func TestRecordAttemptValidation(t *testing.T) {
	store := openTempStore(t)

	cases := []storage.AttemptRecord{
		{},
		{AttemptID: "a-1", Phase: "PLACED"},
		{AttemptID: "a-1", Outcome: "aborted"},
		{AttemptID: "a-1", Outcome: "aborted", Phase: "PLACED", Participants: -1},
	}
	for _, rec := range cases {
		if err := store.RecordAttempt(context.Background(), rec); err == nil {
			t.Fatalf("expected validation error for %+v", rec)
		}
	}
}

func TestListAttemptsRejectsNonPositiveLimit(t *testing.T) {
	store := openTempStore(t)
	if _, err := store.ListAttempts(context.Background(), 0); err == nil {
		t.Fatal("expected limit error")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if err := store.RecordAttempt(context.Background(), storage.AttemptRecord{}); err == nil {
		t.Fatal("expected error from nil store")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected path error")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autohide.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
