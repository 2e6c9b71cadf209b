package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/ports"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
	"github.com/opsdesk/security-core/internal/pkg/ringbuf"
)

// compactionFactor triggers a journal rewrite once it holds this many times
// the retained capacity.
const compactionFactor = 2

// cappedLog is a retention-capped, append-only index fronted by a write-ahead
// journal. Appends are serialised by mu; the journal write happens before the
// entry becomes visible to readers.
type cappedLog[T any] struct {
	name      string
	journal   ports.Journal[T]
	log       zerolog.Logger
	mu        sync.RWMutex
	ring      *ringbuf.Ring[T]
	journaled int
}

func newCappedLog[T any](ctx context.Context, name string, capacity int, journal ports.Journal[T], log zerolog.Logger) (*cappedLog[T], error) {
	l := &cappedLog[T]{
		name:    name,
		journal: journal,
		log:     log,
		ring:    ringbuf.New[T](capacity),
	}
	if journal == nil {
		return l, nil
	}

	entries, err := journal.Load(ctx, l.ring.Cap())
	if err != nil {
		return nil, fmt.Errorf("load %s journal: %w", name, err)
	}
	for _, e := range entries {
		l.ring.Push(e)
	}
	l.journaled = len(entries)
	return l, nil
}

// append persists entry to the journal and then indexes it. A journal failure
// is returned to the caller but the entry is still indexed in memory.
func (l *cappedLog[T]) append(ctx context.Context, entry T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var journalErr error
	if l.journal != nil {
		if err := l.journal.Append(ctx, entry); err != nil {
			metrics.JournalErrorsTotal.WithLabelValues(l.name).Inc()
			journalErr = fmt.Errorf("append %s journal: %w", l.name, err)
		} else {
			l.journaled++
		}
	}

	l.ring.Push(entry)

	if journalErr == nil && l.journal != nil && l.journaled >= compactionFactor*l.ring.Cap() {
		l.compactLocked(ctx)
	}
	return journalErr
}

func (l *cappedLog[T]) compactLocked(ctx context.Context) {
	retained := l.ring.All()
	if err := l.journal.Rewrite(ctx, retained); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues(l.name).Inc()
		l.log.Warn().Err(err).Str("log", l.name).Msg("journal compaction failed")
		return
	}
	l.journaled = len(retained)
	l.log.Debug().Str("log", l.name).Int("retained", len(retained)).Msg("journal compacted")
}

// recent returns up to limit entries, newest first.
func (l *cappedLog[T]) recent(limit int) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ring.Newest(limit)
}

// all returns every retained entry, oldest first.
func (l *cappedLog[T]) all() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ring.All()
}

func (l *cappedLog[T]) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ring.Len()
}
