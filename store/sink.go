package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/card-scan-go/domain/scan"
)

const saveTimeout = 10 * time.Second

// SavedListener is notified after a capture has been persisted.
type SavedListener func(*CaptureRecord)

// Sink persists capture events. Its Handle method is a scan.CaptureListener.
type Sink struct {
	db      *DB
	guard   *DedupeGuard
	quality int
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []SavedListener

	saved    atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
}

// NewSink returns a sink writing to db. guard may be nil.
func NewSink(logger *slog.Logger, db *DB, guard *DedupeGuard, quality int) *Sink {
	return &Sink{db: db, guard: guard, quality: quality, logger: logger}
}

// AddSavedListener registers l for successful saves.
func (s *Sink) AddSavedListener(l SavedListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Handle stores ev unless the dedupe guard rejects it. Errors are logged.
func (s *Sink) Handle(ev scan.CaptureEvent) {
	release, err := s.guard.Check(ev)
	if err != nil {
		if errors.Is(err, ErrDuplicateCapture) {
			s.dropped.Add(1)
			if s.logger != nil {
				s.logger.Info("capture dropped", "id", ev.ID, "side", ev.Side.String(), "reason", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Warn("dedupe check failed", "id", ev.ID, "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	rec, err := s.db.SaveCapture(ctx, ev, s.quality)
	if err != nil {
		s.failures.Add(1)
		release()
		if s.logger != nil {
			s.logger.Error("capture save failed", "id", ev.ID, "error", err)
		}
		return
	}
	s.saved.Add(1)
	if s.logger != nil {
		s.logger.Info("capture saved", "id", rec.ID, "event_id", rec.EventID, "side", rec.Side, "card_id", rec.CardID, "bytes", len(rec.Image))
	}
	s.mu.Lock()
	listeners := append([]SavedListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(rec)
	}
}

// Counts returns saved, dropped and failed totals.
func (s *Sink) Counts() (saved, dropped, failed uint64) {
	return s.saved.Load(), s.dropped.Load(), s.failures.Load()
}
