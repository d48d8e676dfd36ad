package maintenance

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// The sweep needs exactly two capabilities from the stores.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type OrphanPruner interface {
	PruneOrphans(ctx context.Context) (int64, error)
}

type Usecase struct {
	Notifs ExpiredDeleter
	States OrphanPruner
}

func NewUC(notifs ExpiredDeleter, states OrphanPruner) *Usecase {
	return &Usecase{Notifs: notifs, States: states}
}

type SweepResult struct {
	ExpiredNotifications int64
	OrphanStates         int64
}

// Sweep deletes expired notifications first so their delivery states
// become orphans within the same pass, then prunes all orphans. The
// steps are independent: one failing still lets the other run and
// report its count. Both are safe on any schedule, concurrently with
// live traffic.
func (u *Usecase) Sweep(ctx context.Context) (SweepResult, error) {
	tr := otel.Tracer("maintenance.uc")
	ctx, span := tr.Start(ctx, "maintenance.sweep")
	defer span.End()

	var res SweepResult
	var errExpire, errPrune error

	res.ExpiredNotifications, errExpire = u.Notifs.DeleteExpired(ctx)
	if errExpire != nil {
		span.RecordError(errExpire)
		errExpire = fmt.Errorf("delete expired: %w", errExpire)
	}

	res.OrphanStates, errPrune = u.States.PruneOrphans(ctx)
	if errPrune != nil {
		span.RecordError(errPrune)
		errPrune = fmt.Errorf("prune orphans: %w", errPrune)
	}

	span.SetAttributes(
		attribute.Int64("sweep.expired", res.ExpiredNotifications),
		attribute.Int64("sweep.orphans", res.OrphanStates),
	)
	return res, errors.Join(errExpire, errPrune)
}
