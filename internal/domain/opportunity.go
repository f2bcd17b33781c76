package domain

// Opportunity is the persisted view of the latest scan of a token.
// Keyed by TokenAddress; a re-scan overwrites the row.
type Opportunity struct {
	TokenAddress string // PRIMARY KEY
	Symbol       string
	Source       string
	PriceUSD     float64
	LiquidityUSD float64
	SafetyScore  int  // 0-100
	IsSafe       bool // SafetyScore >= configured threshold
	Action       Action
	Reason       string
	UpdatedAt    int64 // Unix ms
}
