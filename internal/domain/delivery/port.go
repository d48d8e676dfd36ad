package delivery

import (
	"context"

	"github.com/google/uuid"
)

// Store persists per-recipient delivery states. Mutations are
// declarative single statements; callers never read-modify-write.
type Store interface {
	// Upsert materializes the state row for (recipient, notificationID),
	// returning the existing row untouched when one is already there.
	Upsert(ctx context.Context, recipient string, notificationID uuid.UUID) (*State, error)

	// MarkRead flags one notification read, setting ReadAt on the first
	// call and preserving it on repeats. The row is created if fan-out
	// has not materialized it yet.
	MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) (*State, error)

	MarkAllRead(ctx context.Context, recipient string) (BulkResult, error)
	ArchiveAll(ctx context.Context, recipient string) (BulkResult, error)

	FindForUser(ctx context.Context, recipient string, limit, skip int, onlyUnread bool) ([]State, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)

	DeleteAllForUser(ctx context.Context, recipient string) (int64, error)
	DeleteManyForUser(ctx context.Context, recipient string, ids []uuid.UUID) (int64, error)

	// PruneOrphans removes states whose master notification is gone.
	PruneOrphans(ctx context.Context) (int64, error)
}
