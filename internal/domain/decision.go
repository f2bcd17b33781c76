package domain

// Action is the outcome of evaluating a candidate.
type Action string

const (
	ActionSkip Action = "SKIP"
	ActionBuy  Action = "BUY"
	ActionNone Action = "NONE"
)

// Decision reasons.
const (
	ReasonLowLiquidity  = "Low Liquidity"
	ReasonLowVolume     = "Low Volume"
	ReasonUnsafe        = "Unsafe"
	ReasonLowConfidence = "Low Confidence"
	ReasonAutoBuy       = "Auto Buy"
)

// Decision is the result of the gating policy for one candidate.
type Decision struct {
	Action     Action
	Reason     string
	Confidence *float64 // set only when the confidence gate was reached
}
