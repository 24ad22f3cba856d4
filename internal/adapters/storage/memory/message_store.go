package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/folio-inbox/internal/adapters/storage/changefeed"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// MessageStore is an in-memory implementation of domain.MessageStore.
// It is NOT persistent and is only suitable for development / local mode.
type MessageStore struct {
	mu      sync.RWMutex
	inboxes map[domain.AccountID]map[domain.MessageID]*domain.Message
	hub     *changefeed.Hub

	now  func() time.Time
	last time.Time
}

// Option configures a MessageStore.
type Option func(*MessageStore)

// WithClock overrides the clock used for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MessageStore) {
		s.now = now
	}
}

func NewMessageStore(opts ...Option) *MessageStore {
	s := &MessageStore{
		inboxes: make(map[domain.AccountID]map[domain.MessageID]*domain.Message),
		hub:     changefeed.NewHub(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.MessageStore = (*MessageStore)(nil)

func (s *MessageStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.RecipientID == "" || strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("%w: recipient and body are required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	msg.ID = domain.MessageID(uuid.NewString())
	msg.CreatedAt = s.stamp()

	inbox, ok := s.inboxes[msg.RecipientID]
	if !ok {
		inbox = make(map[domain.MessageID]*domain.Message)
		s.inboxes[msg.RecipientID] = inbox
	}
	inbox[msg.ID] = msg.Clone()
	s.mu.Unlock()

	s.hub.Notify(msg.RecipientID)
	return nil
}

func (s *MessageStore) GetMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.inboxes[recipient][id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	return msg.Clone(), nil
}

func (s *MessageStore) ListMessages(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inbox := s.inboxes[q.RecipientID]
	out := make([]*domain.Message, 0, len(inbox))
	for _, m := range inbox {
		if q.UnreadOnly && m.Read {
			continue
		}
		if q.After != nil && !q.After.IsOlder(m) {
			continue
		}
		out = append(out, m.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MessageStore) SetRead(ctx context.Context, recipient domain.AccountID, id domain.MessageID, read bool) error {
	s.mu.Lock()
	msg, ok := s.inboxes[recipient][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	msg.Read = read
	s.mu.Unlock()

	s.hub.Notify(recipient)
	return nil
}

func (s *MessageStore) DeleteMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) error {
	s.mu.Lock()
	if _, ok := s.inboxes[recipient][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	delete(s.inboxes[recipient], id)
	s.mu.Unlock()

	s.hub.Notify(recipient)
	return nil
}

func (s *MessageStore) WatchMessages(ctx context.Context, q domain.MessageQuery) (<-chan domain.Snapshot, error) {
	return s.hub.Watch(ctx, q.RecipientID, func(ctx context.Context) ([]*domain.Message, error) {
		return s.ListMessages(ctx, q)
	}), nil
}

// stamp returns a strictly increasing write time. Callers must hold s.mu.
func (s *MessageStore) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}
