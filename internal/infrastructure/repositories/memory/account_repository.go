package memory

import (
	"context"
	"sort"
	"sync"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
)

type MemoryAccountRepository struct {
	accounts map[domain.AccountID]*domain.Account
	mu       sync.RWMutex
}

func NewMemoryAccountRepository() ports.AccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[domain.AccountID]*domain.Account),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc := *account
	r.accounts[account.ID] = &acc
	return nil
}

func (r *MemoryAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		acc := *account
		accounts = append(accounts, &acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}
