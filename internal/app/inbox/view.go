package inbox

import (
	"context"
	"errors"
	"sync"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// View is the local state a client keeps for one inbox: the current first page
// and the unread badge. Mutations through a View are applied locally first and
// rolled back if the store rejects them.
type View struct {
	mutator   *Mutator
	recipient domain.AccountID

	mu       sync.Mutex
	messages []*domain.Message
	unread   int
}

func NewView(mutator *Mutator, recipient domain.AccountID) *View {
	return &View{mutator: mutator, recipient: recipient}
}

// ApplyPage replaces the local page with a fresh snapshot.
func (v *View) ApplyPage(page *domain.Page) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.messages = v.messages[:0]
	for _, m := range page.Messages {
		v.messages = append(v.messages, m.Clone())
	}
}

// ApplyUnread replaces the local unread count.
func (v *View) ApplyUnread(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unread = n
}

func (v *View) Messages() []*domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]*domain.Message, 0, len(v.messages))
	for _, m := range v.messages {
		out = append(out, m.Clone())
	}
	return out
}

func (v *View) Unread() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unread
}

// SetRead flips the read flag locally, writes it, and restores the previous
// state if the write fails.
func (v *View) SetRead(ctx context.Context, id domain.MessageID, read bool) error {
	v.mu.Lock()
	var (
		prev    bool
		touched *domain.Message
	)
	if i := v.index(id); i >= 0 {
		touched = v.messages[i]
		prev = touched.Read
		touched.Read = read
		v.unread += unreadDelta(prev, read)
	}
	v.mu.Unlock()

	err := v.mutator.SetRead(ctx, v.recipient, id, read)
	if err != nil && touched != nil {
		v.mu.Lock()
		if i := v.index(id); i >= 0 {
			v.messages[i].Read = prev
			v.unread -= unreadDelta(prev, read)
		}
		v.mu.Unlock()
	}
	return err
}

// Delete removes the message locally, deletes it, and puts it back if the delete
// fails. A message that is already gone from the store counts as deleted.
func (v *View) Delete(ctx context.Context, id domain.MessageID) error {
	v.mu.Lock()
	var (
		removed *domain.Message
		at      int
	)
	if i := v.index(id); i >= 0 {
		removed, at = v.messages[i], i
		v.messages = append(v.messages[:i], v.messages[i+1:]...)
		if !removed.Read {
			v.unread--
		}
	}
	v.mu.Unlock()

	err := v.mutator.DeleteMessage(ctx, v.recipient, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil && removed != nil {
		v.mu.Lock()
		if at > len(v.messages) {
			at = len(v.messages)
		}
		v.messages = append(v.messages[:at], append([]*domain.Message{removed}, v.messages[at:]...)...)
		if !removed.Read {
			v.unread++
		}
		v.mu.Unlock()
	}
	return err
}

func (v *View) index(id domain.MessageID) int {
	for i, m := range v.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func unreadDelta(prev, next bool) int {
	switch {
	case !prev && next:
		return -1
	case prev && !next:
		return 1
	default:
		return 0
	}
}
