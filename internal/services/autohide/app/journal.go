package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/autohidehost/internal/services/autohide/domain/transition"
	"github.com/louisbranch/autohidehost/internal/services/autohide/storage"
)

const (
	defaultJournalBuffer = 64
	journalWriteTimeout  = 5 * time.Second
)

// journal writes finished attempts to the attempt store off the tick
// goroutine. RecordAttempt never blocks; when the buffer is full the record
// is dropped and logged.
type journal struct {
	store storage.AttemptStore
	logf  func(string, ...any)

	mu      sync.Mutex
	closed  bool
	records chan storage.AttemptRecord
	done    chan struct{}
}

func newJournal(store storage.AttemptStore, buffer int, logf func(string, ...any)) *journal {
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	if logf == nil {
		logf = log.Printf
	}
	j := &journal{
		store:   store,
		logf:    logf,
		records: make(chan storage.AttemptRecord, buffer),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *journal) run() {
	defer close(j.done)
	for rec := range j.records {
		if j.store == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		if err := j.store.RecordAttempt(ctx, rec); err != nil {
			j.logf("journal attempt %s: %v", rec.AttemptID, err)
		}
		cancel()
	}
}

// RecordAttempt implements transition.Recorder.
func (j *journal) RecordAttempt(a transition.Attempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.records <- attemptRecord(a):
	default:
		j.logf("journal full, dropped attempt %s", a.ID)
	}
}

// Close flushes queued records and stops the writer.
func (j *journal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.records)
	}
	j.mu.Unlock()
	<-j.done
}

func attemptRecord(a transition.Attempt) storage.AttemptRecord {
	rec := storage.AttemptRecord{
		AttemptID:    a.ID,
		Outcome:      string(a.Outcome),
		AbortReason:  a.AbortReason,
		Phase:        a.Phase.String(),
		Participants: a.Participants,
		Error:        a.Err,
		StartedAt:    a.StartedAt,
		FinishedAt:   a.FinishedAt,
	}
	if !a.Bed.IsZero() {
		rec.Bed = a.Bed.String()
	}
	return rec
}
