package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/config/fanout-worker"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs/retry"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/kafka"
	pg "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/postgres"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/redis"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/services/fanout"

	"go.uber.org/zap"
)

func wiring(db *pg.DB, pub *redis.Publisher, cfg *config.Config, reqs, rems *kafka.Consumer, l *zap.Logger) (*fanout.Controller, *fanout.Usecase) {
	notifs := pg.NewNotificationRepo(db)
	states := pg.NewDeliveryStateRepo(db)

	uc := fanout.NewUsecase(notifs, states, pub, l, fanout.Options{
		PublishTimeout: cfg.Fanout.PublishTimeout,
		UpsertWorkers:  cfg.Fanout.UpsertWorkers,
	})

	return &fanout.Controller{Log: l, Requests: reqs, Removals: rems, UC: uc}, uc
}

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

	l.Info("starting fanout-worker",
		zap.Strings("kafka_brokers", cfg.In.Brokers),
		zap.String("requests_topic", cfg.In.RequestsTopic),
		zap.String("removals_topic", cfg.In.RemovalsTopic),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
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

	// redis
	var pub *redis.Publisher
	err = retry.Do(rootCtx, retry.StartupPolicy("redis", l), func(ctx context.Context) error {
		var perr error
		pub, perr = redis.NewPublisher(ctx, cfg.Redis)
		return perr
	})
	if err != nil {
		l.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = pub.Close() }()
	l.Info("redis connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		return db.Pool.Ping(ctx)
	}, l)

	// kafka
	reqCfg := cfg.In.AsConsumerConfig(cfg.In.RequestsTopic)
	reqCfg.Logger = l
	reqs := kafka.BootstrapConsumer(rootCtx, reqCfg, l)
	defer func() { _ = reqs.Close() }()

	remCfg := cfg.In.AsConsumerConfig(cfg.In.RemovalsTopic)
	remCfg.Logger = l
	rems := kafka.BootstrapConsumer(rootCtx, remCfg, l)
	defer func() { _ = rems.Close() }()

	l.Info("kafka consumers initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
	)

	// start
	ctrl, uc := wiring(db, pub, cfg, reqs, rems, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	// main loop
	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	// let in-flight realtime publishes finish before the client closes
	uc.Drain()

	// graceful metrics server shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
