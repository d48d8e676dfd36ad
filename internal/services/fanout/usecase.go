package fanout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/delivery"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
)

var (
	ErrEmptyTitle     = errors.New("notification title is empty")
	ErrEmptyBody      = errors.New("notification body is empty")
	ErrNoAudience     = errors.New("notification audience is empty")
	ErrEmptyRecipient = errors.New("recipient is empty")
)

// IsInvalidArgument reports errors raised by input validation, before
// any write happened.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrEmptyBody) ||
		errors.Is(err, ErrNoAudience) ||
		errors.Is(err, ErrEmptyRecipient)
}

const (
	DefaultListLimit      = 50
	defaultPublishTimeout = 3 * time.Second
	defaultUpsertWorkers  = 8
)

var (
	notificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_notifications_created_total",
		Help: "Notifications persisted.",
	})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_publish_failures_total",
		Help: "Realtime publishes that failed after persistence.",
	})
	upsertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_upsert_failures_total",
		Help: "Delivery-state upserts that failed during list fan-out.",
	})
	eventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_events_rejected_total",
		Help: "Ingest events dropped after validation.",
	})
)

type Options struct {
	PublishTimeout time.Duration
	UpsertWorkers  int
}

// Usecase coordinates the two stores and the realtime transport.
// Persistence is authoritative; pushing to live subscribers is
// advisory and never fails a call.
type Usecase struct {
	notifs notification.Store
	states delivery.Store
	pub    notification.Publisher
	log    *zap.Logger
	opts   Options

	pubWG sync.WaitGroup
}

func NewUsecase(notifs notification.Store, states delivery.Store, pub notification.Publisher, log *zap.Logger, opts Options) *Usecase {
	if log == nil {
		log = zap.L()
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.UpsertWorkers <= 0 {
		opts.UpsertWorkers = defaultUpsertWorkers
	}
	return &Usecase{notifs: notifs, states: states, pub: pub, log: log, opts: opts}
}

type CreateInput struct {
	Title     string
	Body      string
	Type      string
	Severity  notification.Severity
	Audience  notification.Audience
	Channels  []string
	Metadata  map[string]any
	ExpiresAt *time.Time
}

// Create validates and persists a notification, then pushes it to the
// audience's channels in the background. A push failure is logged and
// counted, never returned: the saved record is what recipients will
// see on their next list call regardless.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*notification.Notification, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, ErrEmptyBody
	}
	if in.Audience.IsZero() || in.Audience.Empty() {
		return nil, ErrNoAudience
	}

	tr := otel.Tracer("fanout.uc")
	ctx, span := tr.Start(ctx, "fanout.create",
		trace.WithAttributes(attribute.String("audience.kind", string(in.Audience.Kind()))),
	)
	defer span.End()

	n := &notification.Notification{
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimSpace(in.Body),
		Type:      strings.TrimSpace(in.Type),
		Severity:  in.Severity.Normalize(),
		Audience:  in.Audience,
		Channels:  normalizeChannels(in.Channels),
		Metadata:  in.Metadata,
		ExpiresAt: in.ExpiresAt,
	}

	if err := u.notifs.Create(ctx, n); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create notification: %w", err)
	}
	notificationsCreated.Inc()

	if channels := n.Audience.Channels(); len(channels) > 0 {
		u.publishAsync(ctx, channels, n)
	}
	span.SetAttributes(attribute.String("notification.id", n.ID.String()))
	return n, nil
}

func (u *Usecase) publishAsync(ctx context.Context, channels []string, n *notification.Notification) {
	// Detached from the caller: the push outlives the creating call but
	// must never block or fail it.
	pctx := context.WithoutCancel(ctx)
	u.pubWG.Add(1)
	go func() {
		defer u.pubWG.Done()
		pctx, cancel := context.WithTimeout(pctx, u.opts.PublishTimeout)
		defer cancel()
		if err := u.pub.Publish(pctx, channels, n); err != nil {
			publishFailures.Inc()
			obs.WithTrace(pctx, u.log).Warn("realtime publish failed",
				zap.String("notification_id", n.ID.String()),
				zap.Int("channels", len(channels)),
				zap.Error(err))
		}
	}()
}

// Drain waits for in-flight background publishes, for shutdown.
func (u *Usecase) Drain() { u.pubWG.Wait() }

type ListOptions struct {
	Limit      int
	Skip       int
	OnlyUnread bool
}

// InboxItem is one merged view: the shared record plus the caller's
// own delivery state.
type InboxItem struct {
	Notification notification.Notification `json:"notification"`
	State        delivery.State            `json:"state"`
}

// ListForUser pages through the notifications visible to the recipient
// and materializes a delivery state for each on the way out, so even a
// first-ever view produces rows to mark read later. Failed upserts
// degrade their item to an unread zero state instead of failing the
// call.
func (u *Usecase) ListForUser(ctx context.Context, recipient, role string, opts ListOptions) ([]InboxItem, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, ErrEmptyRecipient
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	skip := opts.Skip
	if skip < 0 {
		skip = 0
	}

	tr := otel.Tracer("fanout.uc")
	ctx, span := tr.Start(ctx, "fanout.list",
		trace.WithAttributes(attribute.Int("limit", limit), attribute.Bool("only_unread", opts.OnlyUnread)),
	)
	defer span.End()

	raw, err := u.notifs.FindVisibleTo(ctx, recipient, role, limit, skip)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find visible: %w", err)
	}
	if len(raw) == 0 {
		return []InboxItem{}, nil
	}

	byID := u.materialize(ctx, recipient, raw)

	// Second lookup pass: rows whose upsert just failed may still exist
	// from an earlier call, with read/archive flags worth keeping.
	if len(byID) < len(raw) {
		states, err := u.states.FindForUser(ctx, recipient, limit, skip, false)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("find states: %w", err)
		}
		for _, s := range states {
			if _, ok := byID[s.NotificationID]; !ok {
				byID[s.NotificationID] = s
			}
		}
	}

	items := make([]InboxItem, 0, len(raw))
	for _, n := range raw {
		st, ok := byID[n.ID]
		if !ok {
			// Not yet delivered; surfaces as a fresh unread item.
			st = delivery.State{Recipient: recipient, NotificationID: n.ID}
		}
		if opts.OnlyUnread && st.IsRead {
			continue
		}
		items = append(items, InboxItem{Notification: n, State: st})
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}

// materialize upserts one state row per visible notification with
// bounded parallelism and returns the surviving rows keyed by ID.
func (u *Usecase) materialize(ctx context.Context, recipient string, raw []notification.Notification) map[uuid.UUID]delivery.State {
	workers := u.opts.UpsertWorkers
	if workers > len(raw) {
		workers = len(raw)
	}

	var (
		mu  sync.Mutex
		out = make(map[uuid.UUID]delivery.State, len(raw))
		sem = make(chan struct{}, workers)
		wg  sync.WaitGroup
	)
	for _, n := range raw {
		wg.Add(1)
		sem <- struct{}{}
		go func(id uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			st, err := u.states.Upsert(ctx, recipient, id)
			if err != nil {
				upsertFailures.Inc()
				obs.WithTrace(ctx, u.log).Warn("delivery upsert failed",
					zap.String("recipient", recipient),
					zap.String("notification_id", id.String()),
					zap.Error(err))
				return
			}
			mu.Lock()
			out[id] = *st
			mu.Unlock()
		}(n.ID)
	}
	wg.Wait()
	return out
}

func (u *Usecase) MarkRead(ctx context.Context, recipient string, id uuid.UUID) (*delivery.State, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, ErrEmptyRecipient
	}
	st, err := u.states.MarkRead(ctx, recipient, id)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return st, nil
}

func (u *Usecase) MarkAllRead(ctx context.Context, recipient string) (delivery.BulkResult, error) {
	if strings.TrimSpace(recipient) == "" {
		return delivery.BulkResult{}, ErrEmptyRecipient
	}
	res, err := u.states.MarkAllRead(ctx, recipient)
	if err != nil {
		return delivery.BulkResult{}, fmt.Errorf("mark all read: %w", err)
	}
	return res, nil
}

func (u *Usecase) ArchiveAll(ctx context.Context, recipient string) (delivery.BulkResult, error) {
	if strings.TrimSpace(recipient) == "" {
		return delivery.BulkResult{}, ErrEmptyRecipient
	}
	res, err := u.states.ArchiveAll(ctx, recipient)
	if err != nil {
		return delivery.BulkResult{}, fmt.Errorf("archive all: %w", err)
	}
	return res, nil
}

func (u *Usecase) DeleteAllForUser(ctx context.Context, recipient string) (int64, error) {
	if strings.TrimSpace(recipient) == "" {
		return 0, ErrEmptyRecipient
	}
	n, err := u.states.DeleteAllForUser(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return n, nil
}

func (u *Usecase) DeleteManyForUser(ctx context.Context, recipient string, ids []uuid.UUID) (int64, error) {
	if strings.TrimSpace(recipient) == "" {
		return 0, ErrEmptyRecipient
	}
	n, err := u.states.DeleteManyForUser(ctx, recipient, ids)
	if err != nil {
		return 0, fmt.Errorf("delete many: %w", err)
	}
	return n, nil
}

func (u *Usecase) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	if strings.TrimSpace(recipient) == "" {
		return 0, ErrEmptyRecipient
	}
	n, err := u.states.CountUnread(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func normalizeChannels(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
