//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func itBootstrap() string {
	if v := os.Getenv("IT_BOOTSTRAP"); v != "" {
		return v
	}
	return "127.0.0.1:19092"
}

type itEvent struct {
	Name string `json:"name"`
}

func TestITConsumeRoundTrip(t *testing.T) {
	l := zaptest.NewLogger(t)
	bootstrap := itBootstrap()
	topic := "it-" + uuid.NewString()[:8]

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	require.NoError(t, EnsureTopic(ctx, []string{bootstrap}, TopicSpec{Name: topic, MaxWait: 30 * time.Second}, l))

	w := &kafka.Writer{
		Addr:         kafka.TCP(bootstrap),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	t.Cleanup(func() { _ = w.Close() })

	payload, err := json.Marshal(itEvent{Name: "ping"})
	require.NoError(t, err)
	require.NoError(t, w.WriteMessages(ctx,
		// the undecodable message must be dropped, not wedge the group
		kafka.Message{Key: []byte("bad"), Value: []byte("{not json")},
		kafka.Message{Key: []byte("good"), Value: payload},
	))

	cons := NewConsumer(&ConsumerConfig{
		Brokers:       []string{bootstrap},
		GroupID:       "it-group-" + topic,
		Topic:         topic,
		FromBeginning: true,
		Logger:        l,
	})
	t.Cleanup(func() { _ = cons.Close() })

	received := make(chan itEvent, 2)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan error, 1)
	go func() {
		done <- cons.Consume(runCtx, JSONHandler[itEvent](l, func(ctx context.Context, key []byte, ev itEvent) error {
			received <- ev
			return nil
		}))
	}()

	select {
	case ev := <-received:
		assert.Equal(t, "ping", ev.Name)
	case <-time.After(60 * time.Second):
		t.Fatal("no message within 60s")
	}

	stop()
	assert.ErrorIs(t, <-done, context.Canceled)
}
