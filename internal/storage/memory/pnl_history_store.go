package memory

import (
	"context"
	"sort"
	"sync"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

// PnLHistoryStore is an in-memory implementation of storage.PnLHistoryStore.
type PnLHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PnLPoint // keyed by position_id
}

// NewPnLHistoryStore creates a new in-memory PnL history store.
func NewPnLHistoryStore() *PnLHistoryStore {
	return &PnLHistoryStore{
		data: make(map[string][]*domain.PnLPoint),
	}
}

var _ storage.PnLHistoryStore = (*PnLHistoryStore)(nil)

// InsertBulk appends points. Rejects the whole batch if any point is invalid.
func (s *PnLHistoryStore) InsertBulk(_ context.Context, points []*domain.PnLPoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.PositionID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		copy := *p
		s.data[p.PositionID] = append(s.data[p.PositionID], &copy)
	}
	return nil
}

// GetByPosition retrieves all points for a position, ordered by timestamp ASC.
func (s *PnLHistoryStore) GetByPosition(_ context.Context, positionID string) ([]*domain.PnLPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[positionID]
	result := make([]*domain.PnLPoint, len(points))
	for i, p := range points {
		copy := *p
		result[i] = &copy
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
