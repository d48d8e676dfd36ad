package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
)

var _ notification.Store = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications
  (title, body, type, severity, audience_kind, audience_members, channels, metadata, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at;
`

	qNotifByID = `
SELECT id, title, body, type, severity, audience_kind, audience_members, channels, metadata, created_at, expires_at
FROM notifications
WHERE id = $1;
`

	qNotifVisible = `
SELECT id, title, body, type, severity, audience_kind, audience_members, channels, metadata, created_at, expires_at
FROM notifications
WHERE (audience_kind = 'broadcast'
   OR (audience_kind = 'user' AND $1 = ANY(audience_members))
   OR (audience_kind = 'role' AND $2 <> '' AND $2 = ANY(audience_members)))
  AND (expires_at IS NULL OR expires_at > now())
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4;
`

	qNotifDeleteExpired = `
DELETE FROM notifications
WHERE expires_at IS NOT NULL AND expires_at <= now();
`
)

func scanNotification(row pgx.Row, n *notification.Notification) error {
	var (
		kind     string
		members  []string
		metadata []byte
	)
	if err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Body,
		&n.Type,
		&n.Severity,
		&kind,
		&members,
		&n.Channels,
		&metadata,
		&n.CreatedAt,
		&n.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan notification: %w", err)
	}

	aud, err := notification.ParseAudience(notification.AudienceKind(kind), members)
	if err != nil {
		return fmt.Errorf("scan notification: %w", err)
	}
	n.Audience = aud

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}
	return nil
}

func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	metadata, err := encodeMetadata(n.Metadata)
	if err != nil {
		return err
	}
	n.Severity = n.Severity.Normalize()

	if err := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.Title,
		n.Body,
		n.Type,
		string(n.Severity),
		string(n.Audience.Kind()),
		textArray(n.Audience.Members()),
		textArray(n.Channels),
		metadata,
		n.ExpiresAt,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotification(r.db.Pool.QueryRow(ctx, qNotifByID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepoImpl) FindVisibleTo(ctx context.Context, recipient, role string, limit, skip int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifVisible, recipient, role, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query visible notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notification.Notification, 0, limit)
	for rows.Next() {
		var n notification.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *NotificationRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifDeleteExpired)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return cmd.RowsAffected(), nil
}
