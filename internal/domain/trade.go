package domain

import "github.com/shopspring/decimal"

// TradeSide is BUY or SELL.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade is an append-only fill record.
// Exactly one BUY is written per position open and one SELL per close.
type Trade struct {
	ID           string // PRIMARY KEY, deterministic hash
	PositionID   string
	TokenAddress string
	Symbol       string
	Side         TradeSide
	SOLAmount    decimal.Decimal // debit for BUY, credit for SELL
	TokenAmount  float64
	PriceUSD     float64
	Simulated    bool
	CreatedAt    int64 // Unix ms
}
