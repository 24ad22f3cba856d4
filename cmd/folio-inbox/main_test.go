package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	memstore "github.com/PabloGalante/folio-inbox/internal/adapters/storage/memory"
	"github.com/PabloGalante/folio-inbox/internal/app/inbox"
	"github.com/PabloGalante/folio-inbox/internal/app/notify"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

type fakeNotifier struct {
	mu    sync.Mutex
	shown []domain.Notification
}

func (f *fakeNotifier) Permission() domain.Permission { return domain.PermissionGranted }

func (f *fakeNotifier) RequestPermission(ctx context.Context) (domain.Permission, error) {
	return domain.PermissionGranted, nil
}

func (f *fakeNotifier) Show(ctx context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakeNotifier) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.shown {
		out = append(out, n.Title)
	}
	return out
}

type silentSound struct{}

func (silentSound) Play(ctx context.Context) error { return nil }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchNotifiesOnNewMessage(t *testing.T) {
	messages := memstore.NewMessageStore()
	accounts := memstore.NewAccountStore(&domain.Account{ID: "admin-1", Role: domain.RoleAdmin})
	svc := inbox.NewService(messages, inbox.NewSession(inbox.NewAdminResolver(accounts, "", false)), nil, inbox.Options{
		Policies: inbox.DefaultPolicies(),
	})

	notifier := &fakeNotifier{}
	dispatcher := notify.NewDispatcher(notifier, silentSound{}, notify.Config{})
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, svc, dispatcher, inbox.AdminRecipient, 5, out)
	}()

	waitFor(t, func() bool { return strings.Contains(out.String(), "unread: 0") })

	if _, err := svc.SubmitContact(context.Background(), inbox.ContactInput{SenderName: "Ana", Body: "Hi!"}); err != nil {
		t.Fatalf("SubmitContact failed: %v", err)
	}

	waitFor(t, func() bool { return len(notifier.titles()) == 1 })
	waitFor(t, func() bool { return strings.Contains(out.String(), "unread: 1") })

	if got := notifier.titles()[0]; got != "New message from Ana" {
		t.Fatalf("unexpected notification title %q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("FOLIO_CONFIG", "")
	t.Setenv("FOLIO_JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--user", "user-1", "--ttl", "1h"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}
	if tok := strings.TrimSpace(out.String()); strings.Count(tok, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", tok)
	}
}

func TestResolveAdminFallsBack(t *testing.T) {
	t.Setenv("FOLIO_CONFIG", "")
	t.Setenv("FOLIO_STORAGE_BACKEND", "memory")
	t.Setenv("FOLIO_ADMIN_FALLBACK_ID", "fallback-admin")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resolve-admin", "--log-level", "error"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve-admin failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "fallback-admin" {
		t.Fatalf("expected fallback-admin, got %q", got)
	}
}
