package decision

import (
	"log"
	"sync/atomic"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/observability"
)

// DefaultLowConfidenceLogEvery is how often a NONE decision is logged.
const DefaultLowConfidenceLogEvery = 10

// Options configures Engine.
type Options struct {
	Thresholds Thresholds
	Scorer     ConfidenceScorer // required

	// LowConfidenceLogEvery logs every Nth NONE decision. 0 uses the default,
	// negative disables the diagnostic.
	LowConfidenceLogEvery int

	Logger *log.Logger
}

// Engine evaluates candidates against the gates.
// Decide has no side effects beyond metrics and the sampled diagnostic log.
type Engine struct {
	thresholds Thresholds
	scorer     ConfidenceScorer
	logEvery   int
	logger     *log.Logger

	lowConfidence atomic.Uint64
}

// NewEngine creates a decision engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logEvery := opts.LowConfidenceLogEvery
	if logEvery == 0 {
		logEvery = DefaultLowConfidenceLogEvery
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = FixedScorer(0)
	}

	return &Engine{
		thresholds: opts.Thresholds,
		scorer:     scorer,
		logEvery:   logEvery,
		logger:     logger,
	}
}

// Thresholds returns the configured gate limits.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Decide runs the gates in order; the first failing gate wins.
func (e *Engine) Decide(c *domain.Candidate) domain.Decision {
	d := e.decide(c)
	observability.RecordDecision(string(d.Action), d.Reason)
	return d
}

func (e *Engine) decide(c *domain.Candidate) domain.Decision {
	if c.LiquidityUSD < e.thresholds.MinLiquidityUSD {
		return domain.Decision{Action: domain.ActionSkip, Reason: domain.ReasonLowLiquidity}
	}
	if c.Volume24hUSD < e.thresholds.MinVolumeUSD {
		return domain.Decision{Action: domain.ActionSkip, Reason: domain.ReasonLowVolume}
	}
	if !e.thresholds.IsSafe(c.SafetyScore()) {
		return domain.Decision{Action: domain.ActionSkip, Reason: domain.ReasonUnsafe}
	}

	confidence := e.scorer.Score(c)
	if confidence < e.thresholds.AutoBuyThreshold {
		n := e.lowConfidence.Add(1)
		if e.logEvery > 0 && n%uint64(e.logEvery) == 0 {
			e.logger.Printf("low confidence #%d: %s (%s) scored %.1f < %.1f",
				n, c.Symbol, c.TokenAddress, confidence, e.thresholds.AutoBuyThreshold)
		}
		return domain.Decision{Action: domain.ActionNone, Reason: domain.ReasonLowConfidence, Confidence: &confidence}
	}

	return domain.Decision{Action: domain.ActionBuy, Reason: domain.ReasonAutoBuy, Confidence: &confidence}
}
