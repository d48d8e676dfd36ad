package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/config/maintenance"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs/retry"
	pg "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/postgres"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/services/maintenance"

	"go.uber.org/zap"
)

func main() {
	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	l.Info("starting maintenance",
		zap.Duration("interval", cfg.Sweep.Interval),
		zap.String("metrics_addr", cfg.Sweep.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	var db *pg.DB
	err = retry.Do(rootCtx, retry.StartupPolicy("postgres", l), func(ctx context.Context) error {
		var derr error
		db, derr = pg.NewDB(ctx, cfg.DB)
		return derr
	})
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Sweep.MetricsAddr, func(ctx context.Context) error {
		return db.Pool.Ping(ctx)
	}, l)

	// start
	runner := &maintenance.Runner{
		Log:      l,
		UC:       maintenance.NewUC(pg.NewNotificationRepo(db), pg.NewDeliveryStateRepo(db)),
		Interval: cfg.Sweep.Interval,
	}
	errCh := make(chan error, 1)
	go func() {
		l.Info("runner starting")
		errCh <- runner.Run(rootCtx)
	}()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	// graceful metrics server shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
