package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/domain"
)

// OpportunityStore provides access to opportunities storage.
type OpportunityStore interface {
	// Upsert inserts or overwrites the row keyed by token address (last write wins).
	Upsert(ctx context.Context, o *domain.Opportunity) error

	// GetByToken retrieves an opportunity. Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, tokenAddress string) (*domain.Opportunity, error)

	// ListRecent returns up to limit opportunities ordered by updated_at DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.Opportunity, error)
}

// OpenPositionTx is the unit of writes performed when a position is opened.
type OpenPositionTx struct {
	Position *domain.Position // Status must be OPEN
	Trade    *domain.Trade    // BUY, SOLAmount is debited from the balance
	Log      *domain.LogEntry
}

// ClosePositionTx is the unit of writes performed when a position is closed.
type ClosePositionTx struct {
	PositionID   string
	ExitPriceUSD float64
	PnLPct       float64
	ExitReason   domain.ExitReason
	ClosedAt     int64
	Trade        *domain.Trade // SELL, SOLAmount is credited to the balance
	Log          *domain.LogEntry
}

// LedgerStore persists the virtual balance, positions, trades and log entries.
// OpenPosition and ClosePosition are atomic: all sub-writes apply or none do.
type LedgerStore interface {
	// InitBalance sets the balance to initial if no balance exists yet.
	// Returns the current balance.
	InitBalance(ctx context.Context, initial decimal.Decimal) (decimal.Decimal, error)

	// Balance returns the current virtual SOL balance.
	Balance(ctx context.Context) (decimal.Decimal, error)

	// OpenPosition debits the balance, inserts the BUY trade, inserts the OPEN
	// position and appends the log entry.
	// Returns ErrPositionExists if the token already has an OPEN position,
	// ErrInsufficientBalance if the balance cannot cover the trade.
	OpenPosition(ctx context.Context, tx *OpenPositionTx) error

	// ClosePosition credits the balance, inserts the SELL trade, marks the
	// position CLOSED and appends the log entry.
	// Returns ErrPositionNotOpen if the position is missing or already CLOSED.
	ClosePosition(ctx context.Context, tx *ClosePositionTx) error

	// UpdatePnL stores the latest price, PnL percent and market cap of an OPEN position.
	// Returns ErrPositionNotOpen if the position is missing or CLOSED.
	UpdatePnL(ctx context.Context, positionID string, priceUSD, pnlPct float64, marketCapUSD *float64, updatedAt int64) error

	// GetPosition retrieves a position by ID. Returns ErrNotFound if not exists.
	GetPosition(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpenByToken retrieves the OPEN position of a token. Returns ErrNotFound if none.
	GetOpenByToken(ctx context.Context, tokenAddress string) (*domain.Position, error)

	// ListOpen returns all OPEN positions ordered by created_at ASC.
	ListOpen(ctx context.Context) ([]*domain.Position, error)

	// ListRecentTrades returns up to limit trades ordered by created_at DESC.
	ListRecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error)

	// AppendLog appends a log entry and prunes entries beyond the retention cap.
	AppendLog(ctx context.Context, e *domain.LogEntry) error

	// ListRecentLogs returns up to limit log entries, newest first.
	ListRecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error)
}

// PnLHistoryStore provides access to pnl_history analytics storage.
type PnLHistoryStore interface {
	// InsertBulk appends points. Empty input is a no-op.
	InsertBulk(ctx context.Context, points []*domain.PnLPoint) error

	// GetByPosition retrieves all points for a position, ordered by timestamp ASC.
	GetByPosition(ctx context.Context, positionID string) ([]*domain.PnLPoint, error)
}
