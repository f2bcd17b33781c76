package domain

// Candidate is a token normalized from one scanner source entry.
// Lives for a single scan cycle; only the derived Opportunity is persisted.
type Candidate struct {
	TokenAddress string  // mint address, unique identifier
	Symbol       string
	Name         string
	PriceUSD     float64
	LiquidityUSD float64
	Volume24hUSD float64
	MarketCapUSD float64 // 0 when unknown
	MintDisabled bool    // mint authority revoked
	LPBurnt      bool    // pool tokens burnt or locked
	Source       string  // scanner source name
	ListedAtMs   int64   // pair/coin creation time in ms, 0 when unknown
}

// Safety score weights. Each satisfied signal contributes its weight.
const (
	SafetyWeightMintDisabled = 50
	SafetyWeightLPBurnt      = 50
)

// SafetyScore returns the 0-100 composite of the two safety signals.
func (c *Candidate) SafetyScore() int {
	score := 0
	if c.MintDisabled {
		score += SafetyWeightMintDisabled
	}
	if c.LPBurnt {
		score += SafetyWeightLPBurnt
	}
	return score
}
