package inbox

import (
	"context"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pager reads an inbox newest first, one page at a time.
type Pager struct {
	store    domain.MessageStore
	session  *Session
	policy   CallPolicy
	pageSize int
}

func NewPager(store domain.MessageStore, session *Session, policy CallPolicy, pageSize int) *Pager {
	return &Pager{
		store:    store,
		session:  session,
		policy:   policy,
		pageSize: clampPageSize(pageSize, DefaultPageSize),
	}
}

// FetchPage returns up to pageSize messages strictly older than cursor (or the
// newest ones when cursor is nil). pageSize <= 0 uses the pager's default.
func (p *Pager) FetchPage(
	ctx context.Context,
	recipient domain.AccountID,
	pageSize int,
	cursor *domain.Cursor,
) (*domain.Page, error) {
	recipient = p.session.Recipient(ctx, recipient)
	pageSize = clampPageSize(pageSize, p.pageSize)

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"page_size", pageSize,
		"has_cursor", cursor != nil,
	)

	if recipient == "" {
		return nil, domain.ErrInvalidInput
	}

	var msgs []*domain.Message
	err := call(ctx, p.policy, func(ctx context.Context) error {
		var err error
		msgs, err = p.store.ListMessages(ctx, domain.MessageQuery{
			RecipientID: recipient,
			Limit:       pageSize,
			After:       cursor,
		})
		return err
	})
	if err != nil {
		log.Error("failed to fetch inbox page", "error", err)
		return nil, err
	}

	log.Debug("fetched inbox page", "message_count", len(msgs))
	return newPage(msgs, pageSize), nil
}

// WatchFirstPage follows the newest page live. Older pages are only available
// through FetchPage.
func (p *Pager) WatchFirstPage(ctx context.Context, recipient domain.AccountID, pageSize int) *Subscription[*domain.Page] {
	recipient = p.session.Recipient(ctx, recipient)
	pageSize = clampPageSize(pageSize, p.pageSize)

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"subscription", "first_page",
	)

	q := domain.MessageQuery{RecipientID: recipient, Limit: pageSize}
	return newSubscription(log,
		func(ctx context.Context) (<-chan domain.Snapshot, error) {
			return p.store.WatchMessages(ctx, q)
		},
		func(msgs []*domain.Message) *domain.Page {
			return newPage(msgs, pageSize)
		},
	)
}

func newPage(msgs []*domain.Message, pageSize int) *domain.Page {
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	page := &domain.Page{Messages: msgs}
	if len(msgs) == pageSize {
		page.NextCursor = domain.CursorAfter(msgs[len(msgs)-1])
	}
	return page
}

func clampPageSize(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	return n
}
