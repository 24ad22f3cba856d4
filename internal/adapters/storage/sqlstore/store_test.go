package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/folio-inbox/internal/adapters/storage/sqlstore"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndPaginate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 25; i++ {
		msg := &domain.Message{RecipientID: "r1", SenderName: "Ana", Body: "hello", Source: domain.SourceLandingPage}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	var (
		after *domain.Cursor
		sizes []int
		seen  = map[domain.MessageID]bool{}
		prev  time.Time
	)
	for {
		msgs, err := store.ListMessages(ctx, domain.MessageQuery{RecipientID: "r1", Limit: 10, After: after})
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		sizes = append(sizes, len(msgs))
		for _, m := range msgs {
			if seen[m.ID] {
				t.Fatalf("message %s returned twice", m.ID)
			}
			seen[m.ID] = true
			if !prev.IsZero() && !m.CreatedAt.Before(prev) {
				t.Fatalf("messages not newest first: %v after %v", m.CreatedAt, prev)
			}
			prev = m.CreatedAt
		}
		if len(msgs) < 10 {
			break
		}
		after = domain.CursorAfter(msgs[len(msgs)-1])
	}

	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Fatalf("expected pages of 10,10,5, got %v", sizes)
	}
}

func TestSetReadAndUnreadFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a := &domain.Message{RecipientID: "r1", Body: "Hi"}
	b := &domain.Message{RecipientID: "r1", Body: "Hello"}
	for _, m := range []*domain.Message{a, b} {
		if err := store.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := store.SetRead(ctx, "r1", b.ID, true); err != nil {
			t.Fatalf("SetRead #%d failed: %v", i+1, err)
		}
	}

	unread, err := store.ListMessages(ctx, domain.MessageQuery{RecipientID: "r1", UnreadOnly: true})
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != a.ID {
		t.Fatalf("expected only %s unread, got %+v", a.ID, unread)
	}

	got, err := store.GetMessage(ctx, "r1", b.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !got.Read {
		t.Fatal("expected message to be read")
	}
}

func TestDeleteMissingMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	msg := &domain.Message{RecipientID: "r1", Body: "bye"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.DeleteMessage(ctx, "r1", msg.ID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if err := store.DeleteMessage(ctx, "r1", msg.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.GetMessage(ctx, "r1", msg.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFindAdminAccounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	accounts := []*domain.Account{
		{ID: "second", Role: domain.RoleAdmin, CreatedAt: t0.Add(time.Minute)},
		{ID: "user", Role: domain.RoleUser, CreatedAt: t0},
		{ID: "first", Role: domain.RoleAdmin, CreatedAt: t0},
	}
	for _, a := range accounts {
		if err := store.PutAccount(ctx, a); err != nil {
			t.Fatalf("PutAccount failed: %v", err)
		}
	}

	admins, err := store.FindAccounts(ctx, domain.AccountQuery{Role: domain.RoleAdmin, OrderByCreated: true})
	if err != nil {
		t.Fatalf("FindAccounts failed: %v", err)
	}
	if len(admins) != 2 || admins[0].ID != "first" || admins[1].ID != "second" {
		t.Fatalf("unexpected admins: %+v", admins)
	}

	none, err := store.FindAccounts(ctx, domain.AccountQuery{Role: "Nobody"})
	if err != nil {
		t.Fatalf("FindAccounts failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no accounts, got %+v", none)
	}
}

func TestWatchSeesWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newTestStore(t)

	ch, err := store.WatchMessages(ctx, domain.MessageQuery{RecipientID: "r1", UnreadOnly: true})
	if err != nil {
		t.Fatalf("WatchMessages failed: %v", err)
	}

	if snap := next(t, ch); len(snap.Messages) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(snap.Messages))
	}

	if err := store.AppendMessage(ctx, &domain.Message{RecipientID: "r1", Body: "ping"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if snap := next(t, ch); len(snap.Messages) != 1 {
		t.Fatalf("expected 1 unread after append, got %d", len(snap.Messages))
	}
}

func next(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		if s.Err != nil {
			t.Fatalf("snapshot error: %v", s.Err)
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return domain.Snapshot{}
}
