package inbox

import (
	"context"
	"sync"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

// DefaultAdminID receives admin-bound messages when no account has the Admin role.
const DefaultAdminID domain.AccountID = "Tgb0mKBk0ZfHbQxvdDhjkvQ6jyK2"

// AdminRecipient can be passed wherever a recipient is expected to address the
// admin inbox without knowing its id.
const AdminRecipient domain.AccountID = "@admin"

// AdminResolver finds the account that receives contact and system messages.
type AdminResolver struct {
	accounts       domain.AccountStore
	fallback       domain.AccountID
	orderByCreated bool
}

func NewAdminResolver(accounts domain.AccountStore, fallback domain.AccountID, orderByCreated bool) *AdminResolver {
	if fallback == "" {
		fallback = DefaultAdminID
	}
	return &AdminResolver{
		accounts:       accounts,
		fallback:       fallback,
		orderByCreated: orderByCreated,
	}
}

// ResolveAdminID returns the first Admin account, or the fallback id when there is
// none or the lookup fails. It never returns an error.
func (r *AdminResolver) ResolveAdminID(ctx context.Context) domain.AccountID {
	id, _ := r.resolve(ctx)
	return id
}

// resolve also reports whether the answer came from a completed lookup.
func (r *AdminResolver) resolve(ctx context.Context) (domain.AccountID, bool) {
	log := observability.LoggerFromContext(ctx)

	if r.accounts == nil {
		return r.fallback, true
	}

	admins, err := r.accounts.FindAccounts(ctx, domain.AccountQuery{
		Role:           domain.RoleAdmin,
		OrderByCreated: r.orderByCreated,
		Limit:          1,
	})
	if err != nil {
		log.Error("admin lookup failed, using fallback", "error", err, "fallback", r.fallback)
		return r.fallback, false
	}

	if len(admins) == 0 || admins[0].ID == "" {
		log.Info("no admin account found, using fallback", "fallback", r.fallback)
		return r.fallback, true
	}

	return admins[0].ID, true
}

// Session carries per-session state: today, the admin id once it has been resolved.
type Session struct {
	resolver *AdminResolver

	mu      sync.Mutex
	adminID domain.AccountID
}

func NewSession(resolver *AdminResolver) *Session {
	return &Session{resolver: resolver}
}

// AdminID resolves the admin lazily and caches it for the lifetime of the session.
// A fallback caused by a failed lookup is not cached, so the next call retries.
func (s *Session) AdminID(ctx context.Context) domain.AccountID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adminID != "" {
		return s.adminID
	}

	id, ok := s.resolver.resolve(ctx)
	if ok {
		s.adminID = id
	}
	return id
}

// Recipient maps AdminRecipient to the admin id and returns any other id unchanged.
func (s *Session) Recipient(ctx context.Context, id domain.AccountID) domain.AccountID {
	if id == AdminRecipient {
		return s.AdminID(ctx)
	}
	return id
}
