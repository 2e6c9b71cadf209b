package ports

import (
	"context"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// Journal is the durable, append-only backing log of a capped in-memory index.
type Journal[T any] interface {
	// Append durably writes entry before returning.
	Append(ctx context.Context, entry T) error
	// Load returns at most limit of the newest entries, oldest first.
	Load(ctx context.Context, limit int) ([]T, error)
	// Rewrite replaces the journal contents with entries. Journals that
	// enforce their own retention may treat it as a no-op.
	Rewrite(ctx context.Context, entries []T) error
}

type (
	AttemptJournal = Journal[domain.LoginAttempt]
	AlertJournal   = Journal[domain.SecurityAlert]
)

// AlertNotifier receives every alert after it has been stored.
// Implementations must not block the caller.
type AlertNotifier interface {
	Notify(alert domain.SecurityAlert)
}
