package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
)

// DefaultAlertCapacity is the number of alerts retained before the oldest is evicted.
const DefaultAlertCapacity = 1000

// AlertStore is the append-only, capped log of emitted security alerts.
type AlertStore struct {
	entries  *cappedLog[domain.SecurityAlert]
	notifier ports.AlertNotifier
	log      zerolog.Logger
}

// NewAlertStore replays journal into memory and returns the store. journal
// and notifier may be nil.
func NewAlertStore(ctx context.Context, capacity int, journal ports.AlertJournal, notifier ports.AlertNotifier, log zerolog.Logger) (*AlertStore, error) {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	entries, err := newCappedLog[domain.SecurityAlert](ctx, "alerts", capacity, journal, log)
	if err != nil {
		return nil, err
	}
	return &AlertStore{entries: entries, notifier: notifier, log: log}, nil
}

// Append stores alert and hands it to the notifier. The alert is indexed even
// when the journal write fails; that error is returned for logging.
func (s *AlertStore) Append(ctx context.Context, alert domain.SecurityAlert) error {
	err := s.entries.append(ctx, alert)
	if s.notifier != nil {
		s.notifier.Notify(alert)
	}
	return err
}

// Recent returns up to limit alerts, newest first.
func (s *AlertStore) Recent(limit int) []domain.SecurityAlert {
	return s.entries.recent(limit)
}

// All returns every retained alert, oldest first.
func (s *AlertStore) All() []domain.SecurityAlert {
	return s.entries.all()
}

// Len returns the number of retained alerts.
func (s *AlertStore) Len() int {
	return s.entries.size()
}
