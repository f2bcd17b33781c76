package domain

// PnLPoint is one monitor observation of an open position.
// Stored in ClickHouse pnl_history.
type PnLPoint struct {
	PositionID   string
	TokenAddress string
	TimestampMs  int64
	PriceUSD     float64
	PnLPct       float64
	MarketCapUSD float64 // 0 when unknown
}
