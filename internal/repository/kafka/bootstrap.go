package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the topic exists before the group
// subscribes, so a fresh environment does not loop on fetch errors.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	_ = EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:    cfg.Topic,
		MaxWait: 5 * time.Second,
	}, logger)

	return NewConsumer(cfg)
}
