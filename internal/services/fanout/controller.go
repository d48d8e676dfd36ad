package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
	kafkax "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/kafka"
)

var (
	eventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_consumed_total",
		Help: "Ingest events decoded from the request and removal topics.",
	})
	accountsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_accounts_purged_total",
		Help: "Account deletion events applied.",
	})
	ingestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_ingest_errors_total",
		Help: "Ingest events left uncommitted for redelivery.",
	})
)

// notificationRequest is the wire form other services produce on the
// request topic. Audience decodes through its own strict parser, so an
// inconsistent kind/members pair fails the whole event.
type notificationRequest struct {
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	Type      string                `json:"type"`
	Severity  notification.Severity `json:"severity"`
	Audience  notification.Audience `json:"audience"`
	Channels  []string              `json:"channels"`
	Metadata  map[string]any        `json:"metadata"`
	ExpiresAt *time.Time            `json:"expires_at"`
}

type accountDeletion struct {
	Username string `json:"username"`
}

// Controller drives the two ingest topics. Validation rejects commit
// (a bad event never heals); storage failures leave the message
// uncommitted so the group redelivers it.
type Controller struct {
	Log      *zap.Logger
	Requests *kafkax.Consumer
	Removals *kafkax.Consumer
	UC       *Usecase
}

func (c *Controller) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Requests.Consume(ctx, c.handleRequest())
	}()
	go func() {
		defer wg.Done()
		_ = c.Removals.Consume(ctx, c.handleRemoval())
	}()
	wg.Wait()
	return ctx.Err()
}

func (c *Controller) handleRequest() kafkax.Handler {
	return kafkax.JSONHandler(c.Log, func(ctx context.Context, _ []byte, ev notificationRequest) error {
		eventsConsumed.Inc()
		n, err := c.UC.Create(ctx, CreateInput{
			Title:     ev.Title,
			Body:      ev.Body,
			Type:      ev.Type,
			Severity:  ev.Severity,
			Audience:  ev.Audience,
			Channels:  ev.Channels,
			Metadata:  ev.Metadata,
			ExpiresAt: ev.ExpiresAt,
		})
		if err != nil {
			if IsInvalidArgument(err) {
				eventsRejected.Inc()
				obs.WithTrace(ctx, c.Log).Warn("drop invalid notification request", zap.Error(err))
				return nil
			}
			ingestErrors.Inc()
			return err
		}
		obs.WithTrace(ctx, c.Log).Info("notification created",
			zap.String("notification_id", n.ID.String()),
			zap.String("audience_kind", string(n.Audience.Kind())),
		)
		return nil
	})
}

func (c *Controller) handleRemoval() kafkax.Handler {
	return kafkax.JSONHandler(c.Log, func(ctx context.Context, _ []byte, ev accountDeletion) error {
		eventsConsumed.Inc()
		deleted, err := c.UC.DeleteAllForUser(ctx, ev.Username)
		if err != nil {
			if IsInvalidArgument(err) {
				eventsRejected.Inc()
				c.Log.Warn("drop account deletion without username")
				return nil
			}
			ingestErrors.Inc()
			return err
		}
		accountsPurged.Inc()
		obs.WithTrace(ctx, c.Log).Info("delivery states purged",
			zap.String("username", ev.Username),
			zap.Int64("deleted", deleted),
		)
		return nil
	})
}
