package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// AccountStore keeps accounts in insertion order, which stands in for the
// natural order of a document store.
type AccountStore struct {
	mu       sync.RWMutex
	accounts []*domain.Account
}

func NewAccountStore(accounts ...*domain.Account) *AccountStore {
	s := &AccountStore{}
	for _, a := range accounts {
		s.PutAccount(a)
	}
	return s
}

var _ domain.AccountStore = (*AccountStore)(nil)

// PutAccount adds or replaces an account.
func (s *AccountStore) PutAccount(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	for i, a := range s.accounts {
		if a.ID == account.ID {
			s.accounts[i] = account
			return
		}
	}
	s.accounts = append(s.accounts, account)
}

func (s *AccountStore) FindAccounts(ctx context.Context, q domain.AccountQuery) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Account
	for _, a := range s.accounts {
		if q.Role != "" && a.Role != q.Role {
			continue
		}
		c := *a
		result = append(result, &c)
	}

	if q.OrderByCreated {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		})
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}
