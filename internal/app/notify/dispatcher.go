// Package notify raises a system notification and an audible cue when a new
// message reaches the top of an inbox.
package notify

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

const previewLen = 80

// DedupeMode selects how the newest message is compared with the last one notified.
type DedupeMode string

const (
	// DedupeByBody treats two messages with the same text as the same message.
	DedupeByBody DedupeMode = "body"
	DedupeByID   DedupeMode = "id"
)

type Config struct {
	Dedupe DedupeMode
	Icon   string
}

// Dispatcher notifies about new inbox messages. One Dispatcher corresponds to one
// mounted inbox view; its dedupe state lives as long as it does.
type Dispatcher struct {
	notifier domain.Notifier
	sound    domain.SoundPlayer
	cfg      Config

	mu       sync.Mutex
	mounted  bool
	last     *domain.Message
	notified int
}

func NewDispatcher(notifier domain.Notifier, sound domain.SoundPlayer, cfg Config) *Dispatcher {
	if cfg.Dedupe == "" {
		cfg.Dedupe = DedupeByBody
	}
	return &Dispatcher{notifier: notifier, sound: sound, cfg: cfg}
}

// Mount asks for notification permission if it has been neither granted nor denied.
// Only the first call does anything.
func (d *Dispatcher) Mount(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mounted {
		return
	}
	d.mounted = true

	if d.notifier == nil || d.notifier.Permission() != domain.PermissionDefault {
		return
	}

	perm, err := d.notifier.RequestPermission(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("notification permission request failed", "error", err)
		return
	}
	observability.LoggerFromContext(ctx).Info("notification permission", "state", perm)
}

// OnInboxSnapshot is fed every snapshot of the live first page. It notifies when
// the newest message differs from the last one notified.
func (d *Dispatcher) OnInboxSnapshot(ctx context.Context, messages []*domain.Message) {
	newest := latest(messages)
	if newest == nil {
		return
	}

	d.mu.Lock()
	if d.same(d.last, newest) {
		d.mu.Unlock()
		return
	}
	d.last = newest.Clone()
	d.mu.Unlock()

	log := observability.LoggerFromContext(ctx).With("message_id", newest.ID)

	if d.notifier == nil || d.notifier.Permission() != domain.PermissionGranted {
		log.Debug("notification skipped, permission not granted")
		return
	}

	n := domain.Notification{
		Title: fmt.Sprintf("New message from %s", senderName(newest)),
		Body:  Preview(newest.Body),
		Icon:  d.cfg.Icon,
	}
	if err := d.notifier.Show(ctx, n); err != nil {
		log.Warn("failed to show notification", "error", err)
	} else {
		d.mu.Lock()
		d.notified++
		d.mu.Unlock()
	}

	if d.sound != nil {
		if err := d.sound.Play(ctx); err != nil {
			log.Debug("sound cue failed", "error", err)
		}
	}
}

// Notified returns how many notifications have been shown.
func (d *Dispatcher) Notified() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notified
}

func (d *Dispatcher) same(a, b *domain.Message) bool {
	if a == nil || b == nil {
		return false
	}
	if d.cfg.Dedupe == DedupeByID {
		return a.ID == b.ID
	}
	return a.Body == b.Body
}

// Preview truncates body to its first 80 characters, marking the cut with "...".
func Preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewLen]) + "..."
}

// latest picks the message with the newest CreatedAt; ties keep the earlier entry.
func latest(messages []*domain.Message) *domain.Message {
	var newest *domain.Message
	for _, m := range messages {
		if m == nil {
			continue
		}
		if newest == nil || m.CreatedAt.After(newest.CreatedAt) {
			newest = m
		}
	}
	return newest
}

func senderName(m *domain.Message) string {
	if m.SenderName == "" {
		return domain.DefaultSenderName
	}
	return m.SenderName
}
