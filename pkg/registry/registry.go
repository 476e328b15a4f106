package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// Registry maps accounts to the contracts deployed on them.
type Registry struct {
	mu        sync.RWMutex
	contracts map[domain.AccountID]ports.Contract
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts: make(map[domain.AccountID]ports.Contract),
	}
}

// Deploy puts contract on account.
// If the account already has a contract, it is replaced.
func (r *Registry) Deploy(account domain.AccountID, contract ports.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[account] = contract
}

// Lookup returns the contract deployed on account.
// Returns domain.ErrAccountNotFound if nothing is deployed there.
func (r *Registry) Lookup(account domain.AccountID) (ports.Contract, error) {
	r.mu.RLock()
	c, ok := r.contracts[account]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", account, domain.ErrAccountNotFound)
	}
	return c, nil
}

// Accounts lists every account with a deployed contract, sorted.
func (r *Registry) Accounts() []domain.AccountID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AccountID, 0, len(r.contracts))
	for id := range r.contracts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
