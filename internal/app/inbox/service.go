// Package inbox implements the inbox notification service: admin resolution,
// paging, live unread counts, and message mutation.
package inbox

import (
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

type Options struct {
	Policies        Policies
	DefaultPageSize int
}

// Service bundles the inbox components for one session.
type Service struct {
	*Pager
	*Aggregator
	*Mutator

	messages domain.MessageStore
	session  *Session
	drafter  domain.ReplyDrafter
	policies Policies
}

// NewService wires the inbox components around a single session. drafter may be nil.
func NewService(
	messages domain.MessageStore,
	session *Session,
	drafter domain.ReplyDrafter,
	opts Options,
) *Service {
	return &Service{
		Pager:      NewPager(messages, session, opts.Policies.Read, opts.DefaultPageSize),
		Aggregator: NewAggregator(messages, session),
		Mutator:    NewMutator(messages, session, opts.Policies),
		messages:   messages,
		session:    session,
		drafter:    drafter,
		policies:   opts.Policies,
	}
}

// Session returns the session the service was built with.
func (s *Service) Session() *Session {
	return s.session
}
