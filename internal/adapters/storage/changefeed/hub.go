// Package changefeed turns point-in-time queries into live ones for stores that
// have no native change notifications. Writers call Notify after every mutation
// and each live query re-runs its fetch.
package changefeed

import (
	"context"
	"sync"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// FetchFunc loads the current result of a live query.
type FetchFunc func(ctx context.Context) ([]*domain.Message, error)

type watcher struct {
	signal chan struct{}
}

// Hub tracks live queries per inbox.
type Hub struct {
	mu       sync.Mutex
	watchers map[domain.AccountID]map[*watcher]struct{}
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[domain.AccountID]map[*watcher]struct{}),
	}
}

// Notify wakes every live query on recipient's inbox. It never blocks: signals
// that arrive while a query is still delivering its previous result collapse into one.
func (h *Hub) Notify(recipient domain.AccountID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers[recipient] {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// Watch runs fetch immediately and again after every Notify for recipient,
// sending each result on the returned channel. The channel is closed when ctx is done.
func (h *Hub) Watch(ctx context.Context, recipient domain.AccountID, fetch FetchFunc) <-chan domain.Snapshot {
	w := &watcher{signal: make(chan struct{}, 1)}
	h.add(recipient, w)

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		defer h.remove(recipient, w)

		for {
			msgs, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}

			select {
			case out <- domain.Snapshot{Messages: msgs, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-w.signal:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Watchers returns the number of live queries on recipient's inbox.
func (h *Hub) Watchers(recipient domain.AccountID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[recipient])
}

func (h *Hub) add(recipient domain.AccountID, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[recipient]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[recipient] = set
	}
	set[w] = struct{}{}
}

func (h *Hub) remove(recipient domain.AccountID, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.watchers[recipient]
	delete(set, w)
	if len(set) == 0 {
		delete(h.watchers, recipient)
	}
}
