package domain

import "github.com/shopspring/decimal"

// PositionStatus is the lifecycle state of a position. CLOSED is terminal.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitManual     ExitReason = "MANUAL"
)

// Position is a virtual holding of a single token.
// At most one OPEN position exists per TokenAddress.
type Position struct {
	ID              string // deterministic hash of token and open time
	TokenAddress    string
	Symbol          string
	EntryPriceUSD   float64
	CurrentPriceUSD float64
	TokenAmount     float64
	SOLCost         decimal.Decimal
	MarketCapUSD    *float64
	Status          PositionStatus
	PnLPct          float64
	Simulated       bool
	ExitReason      ExitReason // empty while OPEN
	CreatedAt       int64      // Unix ms
	UpdatedAt       int64      // Unix ms
	ClosedAt        *int64     // Unix ms, set on close
}

// IsOpen reports whether the position can still be refreshed or closed.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// PnLPct returns (current - entry) / entry * 100.
// Returns 0 for a non-positive entry price.
func PnLPct(entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (current - entry) / entry * 100
}
