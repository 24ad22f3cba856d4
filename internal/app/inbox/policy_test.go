package inbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/folio-inbox/internal/adapters/storage/memory"
	"github.com/PabloGalante/folio-inbox/internal/app/inbox"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// flakyStore fails ListMessages with a transient error a fixed number of times.
type flakyStore struct {
	*memory.MessageStore
	failures int
	calls    int
	err      error
}

func (f *flakyStore) ListMessages(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MessageStore.ListMessages(ctx, q)
}

func fastPolicy(attempts int) inbox.CallPolicy {
	return inbox.CallPolicy{Timeout: time.Second, MaxAttempts: attempts, InitialBackoff: time.Millisecond}
}

func newPager(store domain.MessageStore, policy inbox.CallPolicy) *inbox.Pager {
	session := inbox.NewSession(inbox.NewAdminResolver(nil, "", false))
	return inbox.NewPager(store, session, policy, 10)
}

func TestPager_RetriesTransientErrors(t *testing.T) {
	store := &flakyStore{
		MessageStore: memory.NewMessageStore(),
		failures:     2,
		err:          domain.NewStoreError("list", errors.New("unavailable")),
	}
	seed(t, store.MessageStore, "r1", "hello")

	page, err := newPager(store, fastPolicy(3)).FetchPage(context.Background(), "r1", 10, nil)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(page.Messages) != 1 || store.calls != 3 {
		t.Fatalf("expected success on 3rd attempt, got %d messages after %d calls", len(page.Messages), store.calls)
	}
}

func TestPager_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{
		MessageStore: memory.NewMessageStore(),
		failures:     10,
		err:          domain.NewStoreError("list", errors.New("unavailable")),
	}

	_, err := newPager(store, fastPolicy(2)).FetchPage(context.Background(), "r1", 10, nil)
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient store error, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", store.calls)
	}
}

func TestPager_DoesNotRetryPermanentErrors(t *testing.T) {
	store := &flakyStore{
		MessageStore: memory.NewMessageStore(),
		failures:     10,
		err:          domain.ErrInvalidCursor,
	}

	_, err := newPager(store, fastPolicy(5)).FetchPage(context.Background(), "r1", 10, nil)
	if !errors.Is(err, domain.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", store.calls)
	}
}
