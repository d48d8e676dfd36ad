package delivery

import (
	"time"

	"github.com/google/uuid"
)

// State is the per-recipient projection of one notification: the
// delivery bookkeeping the shared master record never carries. Exactly
// one row exists per (recipient, notification) pair.
type State struct {
	Recipient      string     `json:"recipient"`
	NotificationID uuid.UUID  `json:"notification_id"`
	IsRead         bool       `json:"is_read"`
	IsArchived     bool       `json:"is_archived"`
	DeliveredAt    time.Time  `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// BulkResult reports a declarative multi-row mutation. Zero counts are
// valid outcomes, not errors.
type BulkResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}
