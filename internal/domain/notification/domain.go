package notification

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Normalize maps empty or unknown severities to SeverityInfo.
func (s Severity) Normalize() Severity {
	if s.Valid() {
		return s
	}
	return SeverityInfo
}

// Notification is the immutable master record shared by every
// recipient it fans out to. Per-recipient read/archive flags live in
// the delivery package, never here.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Type      string         `json:"type,omitempty"`
	Severity  Severity       `json:"severity"`
	Audience  Audience       `json:"audience"`
	Channels  []string       `json:"channels,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}
