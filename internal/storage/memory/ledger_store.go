package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

// DefaultLogRetention is the number of log entries kept when none is configured.
const DefaultLogRetention = 500

// LedgerStore is an in-memory implementation of storage.LedgerStore.
// A single mutex makes every open/close unit atomic: all checks run before
// any write, so a rejected unit leaves no partial state.
type LedgerStore struct {
	mu sync.RWMutex

	balance     decimal.Decimal
	balanceSet  bool
	positions   map[string]*domain.Position // keyed by position_id
	openByToken map[string]string           // token_address -> position_id
	trades      []*domain.Trade
	tradeIDs    map[string]struct{}
	logs        []*domain.LogEntry
	nextLogID   int64
	retention   int
}

// NewLedgerStore creates a new in-memory ledger store.
// logRetention <= 0 uses DefaultLogRetention.
func NewLedgerStore(logRetention int) *LedgerStore {
	if logRetention <= 0 {
		logRetention = DefaultLogRetention
	}
	return &LedgerStore{
		positions:   make(map[string]*domain.Position),
		openByToken: make(map[string]string),
		tradeIDs:    make(map[string]struct{}),
		retention:   logRetention,
	}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

// InitBalance sets the balance if it has never been set.
func (s *LedgerStore) InitBalance(_ context.Context, initial decimal.Decimal) (decimal.Decimal, error) {
	if initial.IsNegative() {
		return decimal.Zero, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.balanceSet {
		s.balance = initial
		s.balanceSet = true
	}
	return s.balance, nil
}

// Balance returns the current virtual SOL balance.
func (s *LedgerStore) Balance(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balance, nil
}

// OpenPosition applies the open unit atomically.
func (s *LedgerStore) OpenPosition(_ context.Context, tx *storage.OpenPositionTx) error {
	if err := validateOpen(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.openByToken[tx.Position.TokenAddress]; exists {
		return storage.ErrPositionExists
	}
	if _, exists := s.positions[tx.Position.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.tradeIDs[tx.Trade.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if s.balance.LessThan(tx.Trade.SOLAmount) {
		return storage.ErrInsufficientBalance
	}

	s.balance = s.balance.Sub(tx.Trade.SOLAmount)
	s.appendTrade(tx.Trade)
	pos := copyPosition(tx.Position)
	s.positions[pos.ID] = pos
	s.openByToken[pos.TokenAddress] = pos.ID
	s.appendLog(tx.Log)
	return nil
}

// ClosePosition applies the close unit atomically.
func (s *LedgerStore) ClosePosition(_ context.Context, tx *storage.ClosePositionTx) error {
	if err := validateClose(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.positions[tx.PositionID]
	if !exists || !pos.IsOpen() {
		return storage.ErrPositionNotOpen
	}
	if _, exists := s.tradeIDs[tx.Trade.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.balance = s.balance.Add(tx.Trade.SOLAmount)
	s.appendTrade(tx.Trade)

	closedAt := tx.ClosedAt
	pos.Status = domain.PositionClosed
	pos.CurrentPriceUSD = tx.ExitPriceUSD
	pos.PnLPct = tx.PnLPct
	pos.ExitReason = tx.ExitReason
	pos.UpdatedAt = tx.ClosedAt
	pos.ClosedAt = &closedAt
	delete(s.openByToken, pos.TokenAddress)

	s.appendLog(tx.Log)
	return nil
}

// UpdatePnL refreshes price and PnL of an OPEN position.
func (s *LedgerStore) UpdatePnL(_ context.Context, positionID string, priceUSD, pnlPct float64, marketCapUSD *float64, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.positions[positionID]
	if !exists || !pos.IsOpen() {
		return storage.ErrPositionNotOpen
	}

	pos.CurrentPriceUSD = priceUSD
	pos.PnLPct = pnlPct
	if marketCapUSD != nil {
		mc := *marketCapUSD
		pos.MarketCapUSD = &mc
	}
	pos.UpdatedAt = updatedAt
	return nil
}

// GetPosition retrieves a position by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetPosition(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.positions[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPosition(pos), nil
}

// GetOpenByToken retrieves the OPEN position of a token. Returns ErrNotFound if none.
func (s *LedgerStore) GetOpenByToken(_ context.Context, tokenAddress string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.openByToken[tokenAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPosition(s.positions[id]), nil
}

// ListOpen returns all OPEN positions ordered by created_at ASC.
func (s *LedgerStore) ListOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.openByToken))
	for _, id := range s.openByToken {
		result = append(result, copyPosition(s.positions[id]))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListRecentTrades returns up to limit trades, newest first.
func (s *LedgerStore) ListRecentTrades(_ context.Context, limit int) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.trades)
	if limit > 0 && n > limit {
		n = limit
	}

	result := make([]*domain.Trade, 0, n)
	for i := len(s.trades) - 1; i >= 0 && len(result) < n; i-- {
		copy := *s.trades[i]
		result = append(result, &copy)
	}
	return result, nil
}

// AppendLog appends a log entry and prunes beyond retention.
func (s *LedgerStore) AppendLog(_ context.Context, e *domain.LogEntry) error {
	if e == nil || e.Level == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLog(e)
	return nil
}

// ListRecentLogs returns up to limit log entries, newest first.
func (s *LedgerStore) ListRecentLogs(_ context.Context, limit int) ([]*domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.logs)
	if limit > 0 && n > limit {
		n = limit
	}

	result := make([]*domain.LogEntry, 0, n)
	for i := len(s.logs) - 1; i >= 0 && len(result) < n; i-- {
		copy := *s.logs[i]
		result = append(result, &copy)
	}
	return result, nil
}

// appendTrade must be called with mu held.
func (s *LedgerStore) appendTrade(t *domain.Trade) {
	copy := *t
	s.trades = append(s.trades, &copy)
	s.tradeIDs[t.ID] = struct{}{}
}

// appendLog must be called with mu held. A nil entry is ignored.
func (s *LedgerStore) appendLog(e *domain.LogEntry) {
	if e == nil {
		return
	}
	s.nextLogID++
	copy := *e
	copy.ID = s.nextLogID
	e.ID = copy.ID
	s.logs = append(s.logs, &copy)

	if over := len(s.logs) - s.retention; over > 0 {
		s.logs = append([]*domain.LogEntry(nil), s.logs[over:]...)
	}
}

func validateOpen(tx *storage.OpenPositionTx) error {
	if tx == nil || tx.Position == nil || tx.Trade == nil {
		return storage.ErrInvalidInput
	}
	if tx.Position.ID == "" || tx.Position.TokenAddress == "" || tx.Position.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}
	if tx.Trade.ID == "" || tx.Trade.Side != domain.SideBuy || !tx.Trade.SOLAmount.IsPositive() {
		return storage.ErrInvalidInput
	}
	return nil
}

func validateClose(tx *storage.ClosePositionTx) error {
	if tx == nil || tx.PositionID == "" || tx.Trade == nil {
		return storage.ErrInvalidInput
	}
	if tx.Trade.ID == "" || tx.Trade.Side != domain.SideSell || tx.Trade.SOLAmount.IsNegative() {
		return storage.ErrInvalidInput
	}
	return nil
}

func copyPosition(p *domain.Position) *domain.Position {
	copy := *p
	if p.MarketCapUSD != nil {
		mc := *p.MarketCapUSD
		copy.MarketCapUSD = &mc
	}
	if p.ClosedAt != nil {
		closedAt := *p.ClosedAt
		copy.ClosedAt = &closedAt
	}
	return &copy
}
