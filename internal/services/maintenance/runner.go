package maintenance

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_sweeps_total", Help: "Sweep passes executed",
	})
	mExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_expired_deleted_total", Help: "Expired notifications deleted",
	})
	mOrphans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_orphans_deleted_total", Help: "Orphan delivery states deleted",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_errors_total", Help: "Errors in sweep loop",
	})
	mSweepDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "maintenance_sweep_duration_seconds", Help: "Sweep duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	Log      *zap.Logger
	UC       *Usecase
	Interval time.Duration
}

func (r *Runner) sweep(ctx context.Context) {
	start := time.Now()
	res, err := r.UC.Sweep(ctx)
	if err != nil {
		mErrors.Inc()
		r.Log.Warn("sweep error", zap.Error(err))
	}
	mSweeps.Inc()
	if res.ExpiredNotifications > 0 || res.OrphanStates > 0 {
		mExpired.Add(float64(res.ExpiredNotifications))
		mOrphans.Add(float64(res.OrphanStates))
		r.Log.Info("sweep finished",
			zap.Int64("expired", res.ExpiredNotifications),
			zap.Int64("orphans", res.OrphanStates),
		)
	}
	mSweepDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}
