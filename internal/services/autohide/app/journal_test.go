package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/host"
	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/transition"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
	autohidesqlite "github.com/louisbranch/autohidehost/internal/services/autohide/storage/sqlite"
)

type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *logSink) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logSink) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

type blockingStore struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	records []storage.AttemptRecord
}

func (b *blockingStore) RecordAttempt(_ context.Context, rec storage.AttemptRecord) error {
	b.entered <- struct{}{}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
	return nil
}

func (b *blockingStore) ListAttempts(context.Context, int) ([]storage.AttemptRecord, error) {
	return nil, nil
}

func finishedAttempt(id string) transition.Attempt {
	started := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	return transition.Attempt{
		ID:           id,
		Phase:        transition.PhaseAdvancing,
		Bed:          host.Placement{Location: "FarmHouse", Tile: host.Tile{X: 9, Y: 9}},
		Participants: 2,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Outcome:      transition.OutcomeCompleted,
	}
}

func TestJournalWritesToStore(t *testing.T) {
	store, err := autohidesqlite.Open(context.Background(), filepath.Join(t.TempDir(), "autohide.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	j := newJournal(store, 4, (&logSink{}).logf)
	j.RecordAttempt(finishedAttempt("a-1"))
	j.RecordAttempt(finishedAttempt("a-2"))
	j.Close()

	records, err := store.ListAttempts(context.Background(), 10)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Outcome != "completed" || records[0].Bed != "FarmHouse (9, 9)" {
		t.Fatalf("record = %+v", records[0])
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
	logs := &logSink{}
	j := newJournal(store, 1, logs.logf)

	j.RecordAttempt(finishedAttempt("a-1"))
	<-store.entered
	j.RecordAttempt(finishedAttempt("a-2"))
	j.RecordAttempt(finishedAttempt("a-3"))
	if logs.count() != 1 {
		t.Fatalf("logs = %d, want one dropped record", logs.count())
	}

	go func() {
		<-store.entered
	}()
	close(store.release)
	j.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.records) != 2 {
		t.Fatalf("stored = %d, want 2", len(store.records))
	}
	if store.records[1].AttemptID != "a-2" {
		t.Fatalf("second record = %s, want a-2", store.records[1].AttemptID)
	}
}

func TestJournalIgnoresRecordsAfterClose(t *testing.T) {
	j := newJournal(nil, 1, (&logSink{}).logf)
	j.Close()
	j.RecordAttempt(finishedAttempt("late"))
	j.Close()
}

func TestAttemptRecordMapping(t *testing.T) {
	a := transition.Attempt{
		ID:           "a-9",
		Phase:        transition.PhasePlaced,
		Participants: 1,
		Outcome:      transition.OutcomeAborted,
		AbortReason:  transition.ReasonPlacementTimeout,
		Err:          "warp rejected",
	}
	rec := attemptRecord(a)
	if rec.AttemptID != "a-9" || rec.Phase != "PLACED" || rec.Outcome != "aborted" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.AbortReason != "placement_timeout" || rec.Error != "warp rejected" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Bed != "" {
		t.Fatalf("bed = %q, want empty for zero placement", rec.Bed)
	}
}
