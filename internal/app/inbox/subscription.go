package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

var ErrAlreadyStarted = errors.New("subscription already started")

// Subscription is a live query projected into values of T.
//
// Values are delivered latest-first: if the consumer falls behind, intermediate
// values are dropped and only the most recent one is kept. Store errors end the
// subscription; it does not reconnect on its own.
type Subscription[T any] struct {
	open    func(ctx context.Context) (<-chan domain.Snapshot, error)
	project func([]*domain.Message) T
	log     *slog.Logger

	out  chan T
	done chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	err     error
}

func newSubscription[T any](
	log *slog.Logger,
	open func(ctx context.Context) (<-chan domain.Snapshot, error),
	project func([]*domain.Message) T,
) *Subscription[T] {
	return &Subscription[T]{
		open:    open,
		project: project,
		log:     log,
		out:     make(chan T, 1),
		done:    make(chan struct{}),
	}
}

// Start opens the underlying live query. The first value is the current state.
func (s *Subscription[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	snaps, err := s.open(ctx)
	if err != nil {
		cancel()
		s.err = err
		close(s.out)
		close(s.done)
		return err
	}

	go s.run(ctx, snaps)
	return nil
}

// C delivers projected values. It is closed once the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Done is closed once the subscription has ended.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the store error that ended the subscription, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop cancels the live query. It is safe to call more than once and before Start.
func (s *Subscription[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		close(s.out)
		close(s.done)
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Subscription[T]) run(ctx context.Context, snaps <-chan domain.Snapshot) {
	defer close(s.done)
	defer close(s.out)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if snap.Err != nil {
				s.log.Error("live query failed", "error", snap.Err)
				s.mu.Lock()
				s.err = snap.Err
				s.mu.Unlock()
				s.cancel()
				return
			}
			s.deliver(s.project(snap.Messages))
		}
	}
}

// deliver replaces an undelivered value instead of blocking. run is the only sender.
func (s *Subscription[T]) deliver(v T) {
	select {
	case s.out <- v:
		return
	default:
	}

	select {
	case <-s.out:
	default:
	}
	s.out <- v
}
