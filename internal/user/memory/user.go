package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/frahmantamala/expense-approval/internal/user"
)

// UserRepository keeps accounts in process memory. It backs the document and
// memory storage drivers where no SQL database is configured.
type UserRepository struct {
	mu       sync.RWMutex
	accounts map[string]user.Account
}

func NewUserRepository(accounts ...*user.Account) *UserRepository {
	r := &UserRepository{accounts: make(map[string]user.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = *a
	}
	return r
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &a, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepository) Upsert(_ context.Context, account *user.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[account.ID] = *account
	return nil
}
