package notification

import (
	"context"

	"github.com/google/uuid"
)

// Store persists master notification records. Records are write-once;
// nothing here mutates a saved notification.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindVisibleTo(ctx context.Context, recipient, role string, limit, skip int) ([]Notification, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// Publisher pushes a saved notification to live subscribers of the
// given channels. Push is advisory: callers log failures and move on,
// the read path stays authoritative.
type Publisher interface {
	Publish(ctx context.Context, channels []string, n *Notification) error
}
