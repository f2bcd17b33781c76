package memory

import (
	"context"
	"sort"
	"sync"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

// OpportunityStore is an in-memory implementation of storage.OpportunityStore.
type OpportunityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Opportunity // keyed by token_address
}

// NewOpportunityStore creates a new in-memory opportunity store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{
		data: make(map[string]*domain.Opportunity),
	}
}

var _ storage.OpportunityStore = (*OpportunityStore)(nil)

// Upsert inserts or replaces the opportunity for its token address.
func (s *OpportunityStore) Upsert(_ context.Context, o *domain.Opportunity) error {
	if o == nil || o.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *o
	s.data[o.TokenAddress] = &copy
	return nil
}

// GetByToken retrieves an opportunity. Returns ErrNotFound if not exists.
func (s *OpportunityStore) GetByToken(_ context.Context, tokenAddress string) (*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[tokenAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *o
	return &copy, nil
}

// ListRecent returns up to limit opportunities, most recently updated first.
func (s *OpportunityStore) ListRecent(_ context.Context, limit int) ([]*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Opportunity, 0, len(s.data))
	for _, o := range s.data {
		copy := *o
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt != result[j].UpdatedAt {
			return result[i].UpdatedAt > result[j].UpdatedAt
		}
		return result[i].TokenAddress < result[j].TokenAddress
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
