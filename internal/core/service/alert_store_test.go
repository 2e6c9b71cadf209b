package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
)

func TestAlertStore_CapAndNotify(t *testing.T) {
	notifier := &captureNotifier{}
	store, err := NewAlertStore(context.Background(), 3, nil, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAlertStore: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := store.Append(context.Background(), domain.SecurityAlert{ID: fmt.Sprintf("a%d", i), Type: domain.AlertBruteForce}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if store.Len() != 3 {
		t.Fatalf("expected 3 alerts, got %d", store.Len())
	}
	recent := store.Recent(2)
	if len(recent) != 2 || recent[0].ID != "a4" || recent[1].ID != "a3" {
		t.Fatalf("unexpected recent alerts: %+v", recent)
	}
	if len(notifier.alerts) != 5 {
		t.Fatalf("expected every alert notified, got %d", len(notifier.alerts))
	}
}

func TestAlertStore_JournalFailureStillNotifies(t *testing.T) {
	notifier := &captureNotifier{}
	journal := &memJournal[domain.SecurityAlert]{appendErr: errJournalDown}
	store, err := NewAlertStore(context.Background(), 10, journal, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAlertStore: %v", err)
	}

	err = store.Append(context.Background(), domain.SecurityAlert{ID: "x"})
	if !errors.Is(err, errJournalDown) {
		t.Fatalf("expected journal error, got %v", err)
	}
	if store.Len() != 1 || len(notifier.alerts) != 1 {
		t.Fatalf("expected indexed and notified, got len=%d notified=%d", store.Len(), len(notifier.alerts))
	}
}

func TestAlertStore_ReplaysJournal(t *testing.T) {
	journal := &memJournal[domain.SecurityAlert]{}
	for i := 0; i < 4; i++ {
		journal.entries = append(journal.entries, domain.SecurityAlert{ID: fmt.Sprintf("j%d", i)})
	}

	store, err := NewAlertStore(context.Background(), 3, journal, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAlertStore: %v", err)
	}
	all := store.All()
	if len(all) != 3 || all[0].ID != "j1" || all[2].ID != "j3" {
		t.Fatalf("unexpected replay: %+v", all)
	}
}
