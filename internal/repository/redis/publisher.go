package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
)

type Config struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

var _ notification.Publisher = (*Publisher)(nil)

// Publisher pushes notifications over Redis pub/sub. Subscribers
// (websocket gateways and the like) listen on the channel names the
// audience resolves to.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Publisher{client: client}, nil
}

func (p *Publisher) Close() error { return p.client.Close() }

// Publish encodes the notification once and PUBLISHes it to every
// channel. Per-channel failures are joined so the caller logs one
// error without losing channel names; a channel with no subscribers is
// not a failure.
func (p *Publisher) Publish(ctx context.Context, channels []string, n *notification.Notification) error {
	if len(channels) == 0 {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	var errs []error
	for _, ch := range channels {
		if err := p.client.Publish(ctx, ch, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}
