package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunnerSweepsUntilCanceled(t *testing.T) {
	del := &stubDeleter{}
	prune := &stubPruner{}
	r := &Runner{
		Log:      zaptest.NewLogger(t),
		UC:       NewUC(del, prune),
		Interval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// One immediate sweep plus at least one tick.
	assert.GreaterOrEqual(t, del.calls, 2)
	assert.Equal(t, del.calls, prune.calls)
}

func TestRunnerKeepsGoingAfterSweepErrors(t *testing.T) {
	del := &stubDeleter{err: assert.AnError}
	prune := &stubPruner{}
	r := &Runner{
		Log:      zaptest.NewLogger(t),
		UC:       NewUC(del, prune),
		Interval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)
	assert.GreaterOrEqual(t, del.calls, 2, "errors must not stop the loop")
}
