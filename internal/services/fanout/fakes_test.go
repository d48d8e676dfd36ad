package fanout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/delivery"
	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/domain/notification"
)

var errNotFound = errors.New("not found")

type memNotifStore struct {
	mu        sync.Mutex
	rows      []notification.Notification
	createErr error
	findErr   error
}

func (m *memNotifStore) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifStore) GetByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.ID == id {
			cp := n
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (m *memNotifStore) FindVisibleTo(_ context.Context, recipient, role string, limit, skip int) ([]notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	now := time.Now()
	visible := make([]notification.Notification, 0, len(m.rows))
	for _, n := range m.rows {
		if n.Audience.VisibleTo(recipient, role) && !n.Expired(now) {
			visible = append(visible, n)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})

	if skip >= len(visible) {
		return nil, nil
	}
	visible = visible[skip:]
	if len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}

func (m *memNotifStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	kept := m.rows[:0]
	var deleted int64
	for _, n := range m.rows {
		if n.Expired(now) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.rows = kept
	return deleted, nil
}

type stateKey struct {
	recipient string
	id        uuid.UUID
}

type memStateStore struct {
	mu         sync.Mutex
	rows       map[stateKey]delivery.State
	upsertErr  map[uuid.UUID]error
	upsertHits int
}

func newMemStateStore() *memStateStore {
	return &memStateStore{rows: map[stateKey]delivery.State{}, upsertErr: map[uuid.UUID]error{}}
}

func (m *memStateStore) put(s delivery.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[stateKey{s.Recipient, s.NotificationID}] = s
}

func (m *memStateStore) Upsert(_ context.Context, recipient string, id uuid.UUID) (*delivery.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertHits++
	if err := m.upsertErr[id]; err != nil {
		return nil, err
	}
	k := stateKey{recipient, id}
	if s, ok := m.rows[k]; ok {
		cp := s
		return &cp, nil
	}
	s := delivery.State{Recipient: recipient, NotificationID: id, DeliveredAt: time.Now().UTC()}
	m.rows[k] = s
	return &s, nil
}

func (m *memStateStore) MarkRead(_ context.Context, recipient string, id uuid.UUID) (*delivery.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := stateKey{recipient, id}
	s, ok := m.rows[k]
	if !ok {
		s = delivery.State{Recipient: recipient, NotificationID: id, DeliveredAt: time.Now().UTC()}
	}
	s.IsRead = true
	if s.ReadAt == nil {
		at := time.Now().UTC()
		s.ReadAt = &at
	}
	m.rows[k] = s
	cp := s
	return &cp, nil
}

func (m *memStateStore) MarkAllRead(_ context.Context, recipient string) (delivery.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res delivery.BulkResult
	for k, s := range m.rows {
		if k.recipient != recipient || s.IsRead {
			continue
		}
		s.IsRead = true
		at := time.Now().UTC()
		s.ReadAt = &at
		m.rows[k] = s
		res.Matched++
		res.Modified++
	}
	return res, nil
}

func (m *memStateStore) ArchiveAll(_ context.Context, recipient string) (delivery.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res delivery.BulkResult
	for k, s := range m.rows {
		if k.recipient != recipient || s.IsArchived {
			continue
		}
		s.IsArchived = true
		m.rows[k] = s
		res.Matched++
		res.Modified++
	}
	return res, nil
}

func (m *memStateStore) FindForUser(_ context.Context, recipient string, limit, skip int, onlyUnread bool) ([]delivery.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = DefaultListLimit
	}

	out := make([]delivery.State, 0, limit)
	for k, s := range m.rows {
		if k.recipient != recipient {
			continue
		}
		if onlyUnread && s.IsRead {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeliveredAt.After(out[j].DeliveredAt)
	})

	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStateStore) CountUnread(_ context.Context, recipient string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.rows {
		if k.recipient == recipient && !s.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memStateStore) DeleteAllForUser(_ context.Context, recipient string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k.recipient == recipient {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memStateStore) DeleteManyForUser(_ context.Context, recipient string, ids []uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		k := stateKey{recipient, id}
		if _, ok := m.rows[k]; ok {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memStateStore) PruneOrphans(context.Context) (int64, error) { return 0, nil }

type publishCall struct {
	channels []string
	id       uuid.UUID
}

type memPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (m *memPublisher) Publish(_ context.Context, channels []string, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, publishCall{channels: channels, id: n.ID})
	return nil
}

func (m *memPublisher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *memPublisher) lastCall() publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}
