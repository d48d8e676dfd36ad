//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
)

func itAddr() string {
	if v := os.Getenv("IT_REDIS_ADDR"); v != "" {
		return v
	}
	return "127.0.0.1:6379"
}

func TestITPublishRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pub, err := NewPublisher(ctx, Config{Addr: itAddr(), DialTimeout: 3 * time.Second, WriteTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	user := "it-" + uuid.NewString()[:8]
	channel := "user:" + user

	sub := redis.NewClient(&redis.Options{Addr: itAddr()})
	t.Cleanup(func() { _ = sub.Close() })
	ps := sub.Subscribe(ctx, channel)
	t.Cleanup(func() { _ = ps.Close() })

	// wait for the subscription ack, otherwise the publish can win the race
	_, err = ps.Receive(ctx)
	require.NoError(t, err)

	n := &notification.Notification{
		ID:        uuid.New(),
		Title:     "live",
		Body:      "over the wire",
		Severity:  notification.SeverityInfo,
		Audience:  notification.Users(user),
		Channels:  []string{"in-app"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, pub.Publish(ctx, n.Audience.Channels(), n))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, channel, msg.Channel)

	var got notification.Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, "live", got.Title)
	assert.Equal(t, notification.AudienceUsers, got.Audience.Kind())
	assert.Equal(t, []string{user}, got.Audience.Members())
}

func TestITPublishWithoutChannels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pub, err := NewPublisher(ctx, Config{Addr: itAddr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	n := &notification.Notification{ID: uuid.New(), Title: "quiet", Body: "no live push", Audience: notification.Broadcast()}
	assert.NoError(t, pub.Publish(ctx, nil, n))
}
