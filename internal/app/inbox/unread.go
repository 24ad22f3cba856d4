package inbox

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

// Aggregator keeps a live unread count per inbox.
type Aggregator struct {
	store   domain.MessageStore
	session *Session
}

func NewAggregator(store domain.MessageStore, session *Session) *Aggregator {
	return &Aggregator{store: store, session: session}
}

// WatchUnread returns a not-yet-started subscription to the unread count.
func (a *Aggregator) WatchUnread(ctx context.Context, recipient domain.AccountID) *Subscription[int] {
	recipient = a.session.Recipient(ctx, recipient)

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"subscription", "unread_count",
	)

	q := domain.MessageQuery{RecipientID: recipient, UnreadOnly: true}
	return newSubscription(log,
		func(ctx context.Context) (<-chan domain.Snapshot, error) {
			return a.store.WatchMessages(ctx, q)
		},
		func(msgs []*domain.Message) int {
			return len(msgs)
		},
	)
}

// SubscribeUnreadCount calls onChange with the current unread count right away and
// again whenever it may have changed. A burst of changes can produce a single call.
//
// The returned unsubscribe is idempotent; once it returns onChange is not called
// again. It may be called from inside onChange.
func (a *Aggregator) SubscribeUnreadCount(
	ctx context.Context,
	recipient domain.AccountID,
	onChange func(count int),
) (unsubscribe func(), err error) {
	sub := a.WatchUnread(ctx, recipient)
	if err := sub.Start(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to subscribe to unread count",
			"recipient_id", recipient, "error", err)
		return nil, err
	}

	var (
		stopped    atomic.Bool
		inCallback atomic.Bool
		done       = make(chan struct{})
		once       sync.Once
	)

	go func() {
		defer close(done)
		for n := range sub.C() {
			if stopped.Load() {
				continue
			}
			inCallback.Store(true)
			onChange(n)
			inCallback.Store(false)
		}
	}()

	return func() {
		once.Do(func() {
			stopped.Store(true)
			sub.Stop()
			if !inCallback.Load() {
				<-done
			}
		})
	}, nil
}
