package kafka

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// JSONHandler decodes event payloads before invoking handle. Payloads
// that fail to decode are logged and dropped with a nil return, so the
// message commits: a malformed event never becomes consumable through
// redelivery.
func JSONHandler[M any](log *zap.Logger, handle func(ctx context.Context, key []byte, msg M) error) Handler {
	if log == nil {
		log = zap.L()
	}
	return func(ctx context.Context, key, value []byte) error {
		var msg M
		if err := json.Unmarshal(value, &msg); err != nil {
			log.Warn("drop undecodable event", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		return handle(ctx, key, msg)
	}
}
