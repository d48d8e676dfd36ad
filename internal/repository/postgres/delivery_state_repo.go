package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/delivery"
)

var _ delivery.Store = (*DeliveryStateRepoImpl)(nil)

type DeliveryStateRepoImpl struct{ db *DB }

func NewDeliveryStateRepo(db *DB) *DeliveryStateRepoImpl { return &DeliveryStateRepoImpl{db: db} }

const (
	qStateInsert = `
INSERT INTO delivery_states (recipient, notification_id)
VALUES ($1, $2)
ON CONFLICT (recipient, notification_id) DO NOTHING
RETURNING recipient, notification_id, is_read, is_archived, delivered_at, read_at;
`

	qStateGet = `
SELECT recipient, notification_id, is_read, is_archived, delivered_at, read_at
FROM delivery_states
WHERE recipient = $1 AND notification_id = $2;
`

	qStateMarkRead = `
INSERT INTO delivery_states (recipient, notification_id, is_read, read_at)
VALUES ($1, $2, TRUE, now())
ON CONFLICT (recipient, notification_id) DO UPDATE
SET is_read = TRUE,
    read_at = COALESCE(delivery_states.read_at, now())
RETURNING recipient, notification_id, is_read, is_archived, delivered_at, read_at;
`

	qStateMarkAllRead = `
UPDATE delivery_states
SET is_read = TRUE, read_at = COALESCE(read_at, now())
WHERE recipient = $1 AND is_read = FALSE;
`

	qStateArchiveAll = `
UPDATE delivery_states
SET is_archived = TRUE
WHERE recipient = $1 AND is_archived = FALSE;
`

	qStateByUser = `
SELECT recipient, notification_id, is_read, is_archived, delivered_at, read_at
FROM delivery_states
WHERE recipient = $1
ORDER BY delivered_at DESC, notification_id
LIMIT $2 OFFSET $3;
`

	qStateUnreadByUser = `
SELECT recipient, notification_id, is_read, is_archived, delivered_at, read_at
FROM delivery_states
WHERE recipient = $1 AND is_read = FALSE
ORDER BY delivered_at DESC, notification_id
LIMIT $2 OFFSET $3;
`

	qStateCountUnread = `
SELECT count(*)
FROM delivery_states
WHERE recipient = $1 AND is_read = FALSE;
`

	qStateDeleteAll = `DELETE FROM delivery_states WHERE recipient = $1;`

	qStateDeleteMany = `
DELETE FROM delivery_states
WHERE recipient = $1 AND notification_id = ANY($2);
`

	qStatePruneOrphans = `
DELETE FROM delivery_states ds
WHERE NOT EXISTS (
  SELECT 1 FROM notifications n WHERE n.id = ds.notification_id
);
`
)

func scanState(row pgx.Row, s *delivery.State) error {
	if err := row.Scan(
		&s.Recipient,
		&s.NotificationID,
		&s.IsRead,
		&s.IsArchived,
		&s.DeliveredAt,
		&s.ReadAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan delivery state: %w", err)
	}
	return nil
}

func (r *DeliveryStateRepoImpl) Upsert(ctx context.Context, recipient string, notificationID uuid.UUID) (*delivery.State, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s delivery.State
	err := scanState(r.db.Pool.QueryRow(ctx, qStateInsert, recipient, notificationID), &s)
	switch {
	case err == nil:
		return &s, nil
	case errors.Is(err, ErrNotFound):
		// Lost the insert race; the surviving row is authoritative.
		if err := scanState(r.db.Pool.QueryRow(ctx, qStateGet, recipient, notificationID), &s); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return nil, err
	}
}

func (r *DeliveryStateRepoImpl) MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) (*delivery.State, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s delivery.State
	if err := scanState(r.db.Pool.QueryRow(ctx, qStateMarkRead, recipient, notificationID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *DeliveryStateRepoImpl) MarkAllRead(ctx context.Context, recipient string) (delivery.BulkResult, error) {
	return r.bulkExec(ctx, qStateMarkAllRead, recipient)
}

func (r *DeliveryStateRepoImpl) ArchiveAll(ctx context.Context, recipient string) (delivery.BulkResult, error) {
	return r.bulkExec(ctx, qStateArchiveAll, recipient)
}

// bulkExec runs a filtered UPDATE whose WHERE already excludes rows the
// update would not change, so matched and modified counts coincide.
func (r *DeliveryStateRepoImpl) bulkExec(ctx context.Context, q, recipient string) (delivery.BulkResult, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, q, recipient)
	if err != nil {
		return delivery.BulkResult{}, fmt.Errorf("bulk update delivery states: %w", err)
	}
	n := cmd.RowsAffected()
	return delivery.BulkResult{Matched: n, Modified: n}, nil
}

func (r *DeliveryStateRepoImpl) FindForUser(ctx context.Context, recipient string, limit, skip int, onlyUnread bool) ([]delivery.State, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	q := qStateByUser
	if onlyUnread {
		q = qStateUnreadByUser
	}

	rows, err := r.db.Pool.Query(ctx, q, recipient, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query delivery states: %w", err)
	}
	defer rows.Close()

	out := make([]delivery.State, 0, limit)
	for rows.Next() {
		var s delivery.State
		if err := scanState(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *DeliveryStateRepoImpl) CountUnread(ctx context.Context, recipient string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := r.db.Pool.QueryRow(ctx, qStateCountUnread, recipient).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *DeliveryStateRepoImpl) DeleteAllForUser(ctx context.Context, recipient string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qStateDeleteAll, recipient)
	if err != nil {
		return 0, fmt.Errorf("delete delivery states: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *DeliveryStateRepoImpl) DeleteManyForUser(ctx context.Context, recipient string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qStateDeleteMany, recipient, ids)
	if err != nil {
		return 0, fmt.Errorf("delete delivery states: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *DeliveryStateRepoImpl) PruneOrphans(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qStatePruneOrphans)
	if err != nil {
		return 0, fmt.Errorf("prune orphan delivery states: %w", err)
	}
	return cmd.RowsAffected(), nil
}
