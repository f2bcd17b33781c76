// Package scanner discovers tokens from a Source, gates them through the
// decision engine and opens paper positions on BUY.
package scanner

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/decision"
	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/ledger"
	"solana-paper-sniper/internal/loop"
	"solana-paper-sniper/internal/observability"
	"solana-paper-sniper/internal/safety"
	"solana-paper-sniper/internal/solana"
	"solana-paper-sniper/internal/storage"
)

// Defaults.
const (
	DefaultBatchSize = 20
	DefaultInterval  = time.Minute
)

var errEmptyToken = errors.New("empty token address")

// Candidate outcomes recorded in metrics.
const (
	OutcomeEvaluated      = "evaluated"
	OutcomeInvalid        = "invalid"
	OutcomeTooOld         = "too_old"
	OutcomeBelowMarketCap = "below_market_cap"
)

// Decider gates a candidate.
type Decider interface {
	Decide(c *domain.Candidate) domain.Decision
	Thresholds() decision.Thresholds
}

// Trader is the subset of the ledger the scanner needs.
type Trader interface {
	HasOpen(ctx context.Context, tokenAddress string) (bool, error)
	Open(ctx context.Context, tokenAddress, symbol string, solAmount decimal.Decimal) (*ledger.OpenResult, error)
	Log(ctx context.Context, level domain.LogLevel, format string, args ...any)
}

// MetadataResolver fills a missing symbol or name.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) (*solana.TokenMetadata, error)
}

// Options configures Scanner.
type Options struct {
	Source        Source                   // required
	Decider       Decider                  // required
	Ledger        Trader                   // required
	Opportunities storage.OpportunityStore // required
	Safety        safety.Checker           // required
	Metadata      MetadataResolver         // optional

	Interval  time.Duration
	BatchSize int
	// CycleTimeout bounds one cycle. 0 uses the loop default.
	CycleTimeout time.Duration
	// MaxAge discards candidates listed earlier than now - MaxAge. 0 disables.
	MaxAge time.Duration
	// MinMarketCapUSD discards candidates with a known market cap below it. 0 disables.
	MinMarketCapUSD float64

	PaperTrading bool
	TradeSizeSOL decimal.Decimal

	Logger *log.Logger
	Now    func() time.Time
}

// CycleStats summarizes one scan cycle.
type CycleStats struct {
	Source         string
	Fetched        int
	Invalid        int
	TooOld         int
	BelowMarketCap int
	Evaluated      int
	Buys           int
	Opened         int
	Duration       time.Duration
	Err            error // whole-fetch failure
}

// Scanner runs the discovery cycle for one source.
type Scanner struct {
	source        Source
	decider       Decider
	ledger        Trader
	opportunities storage.OpportunityStore
	safety        safety.Checker
	metadata      MetadataResolver

	batchSize       int
	maxAge          time.Duration
	minMarketCapUSD float64
	paperTrading    bool
	tradeSize       decimal.Decimal

	logger *log.Logger
	now    func() time.Time
	runner *loop.Runner
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Scanner{
		source:          opts.Source,
		decider:         opts.Decider,
		ledger:          opts.Ledger,
		opportunities:   opts.Opportunities,
		safety:          opts.Safety,
		metadata:        opts.Metadata,
		batchSize:       batch,
		maxAge:          opts.MaxAge,
		minMarketCapUSD: opts.MinMarketCapUSD,
		paperTrading:    opts.PaperTrading,
		tradeSize:       opts.TradeSizeSOL,
		logger:          logger,
		now:             now,
	}
	s.runner = loop.New(loop.Options{
		Name:     "scanner:" + opts.Source.Name(),
		Interval: interval,
		Timeout:  opts.CycleTimeout,
		Cycle:    func(ctx context.Context) { s.RunOnce(ctx) },
		Logger:   logger,
	})
	return s
}

// Name returns the source name.
func (s *Scanner) Name() string {
	return s.source.Name()
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// Stats returns the loop counters.
func (s *Scanner) Stats() loop.Stats {
	return s.runner.Stats()
}

// RunOnce executes a single scan cycle.
func (s *Scanner) RunOnce(ctx context.Context) CycleStats {
	start := time.Now()
	name := s.source.Name()
	stats := CycleStats{Source: name}

	entries, err := s.source.Fetch(ctx, s.batchSize)
	if err != nil {
		stats.Err = err
		stats.Duration = time.Since(start)
		s.logger.Printf("fetch failed: %v", err)
		s.ledger.Log(ctx, domain.LogWarn, "%s scan failed: %v", name, err)
		observability.RecordScanCycle(name, "fetch_error", stats.Duration.Seconds())
		return stats
	}
	stats.Fetched = len(entries)

	for _, e := range entries {
		if ctx.Err() != nil {
			s.logger.Printf("cycle interrupted: %v", ctx.Err())
			break
		}
		s.process(ctx, e, &stats)
	}

	stats.Duration = time.Since(start)
	observability.RecordScanCycle(name, "ok", stats.Duration.Seconds())
	if stats.Fetched > 0 {
		s.logger.Printf("cycle done in %v: fetched=%d evaluated=%d invalid=%d too_old=%d below_mc=%d buys=%d opened=%d",
			stats.Duration, stats.Fetched, stats.Evaluated, stats.Invalid, stats.TooOld,
			stats.BelowMarketCap, stats.Buys, stats.Opened)
	}
	return stats
}

func (s *Scanner) process(ctx context.Context, e Entry, stats *CycleStats) {
	name := s.source.Name()

	c, err := s.source.Normalize(ctx, e)
	if err == nil && c.TokenAddress == "" {
		err = errEmptyToken
	}
	if err != nil {
		stats.Invalid++
		observability.RecordCandidate(name, OutcomeInvalid)
		s.logger.Printf("WARN skip entry %s: %v", e.TokenAddress, err)
		return
	}

	if s.tooOld(c) {
		stats.TooOld++
		observability.RecordCandidate(name, OutcomeTooOld)
		return
	}
	if s.belowMarketCap(c) {
		stats.BelowMarketCap++
		observability.RecordCandidate(name, OutcomeBelowMarketCap)
		return
	}

	s.fillMetadata(ctx, c)

	signals, err := s.safety.Check(ctx, c.TokenAddress)
	if err != nil {
		s.logger.Printf("WARN safety check %s: %v", c.TokenAddress, err)
		signals = safety.Signals{}
	}
	c.MintDisabled = signals.MintDisabled
	c.LPBurnt = signals.LPBurnt

	d := s.decider.Decide(c)
	stats.Evaluated++
	observability.RecordCandidate(name, OutcomeEvaluated)

	s.upsertOpportunity(ctx, c, d)

	if d.Action == domain.ActionBuy {
		stats.Buys++
		if s.buy(ctx, c, d) {
			stats.Opened++
		}
	}
}

// tooOld reports whether a known listing time is beyond MaxAge.
func (s *Scanner) tooOld(c *domain.Candidate) bool {
	if s.maxAge <= 0 || c.ListedAtMs <= 0 {
		return false
	}
	return s.now().Sub(time.UnixMilli(c.ListedAtMs)) > s.maxAge
}

// belowMarketCap uses the market cap, or volume when the cap is unknown.
func (s *Scanner) belowMarketCap(c *domain.Candidate) bool {
	if s.minMarketCapUSD <= 0 {
		return false
	}
	mc := c.MarketCapUSD
	if mc <= 0 {
		mc = c.Volume24hUSD
	}
	return mc > 0 && mc < s.minMarketCapUSD
}

func (s *Scanner) fillMetadata(ctx context.Context, c *domain.Candidate) {
	if s.metadata == nil || (c.Symbol != "" && c.Name != "") {
		return
	}
	md, err := s.metadata.Resolve(ctx, c.TokenAddress)
	if err != nil {
		s.logger.Printf("WARN metadata %s: %v", c.TokenAddress, err)
		return
	}
	if md == nil {
		return
	}
	if c.Symbol == "" {
		c.Symbol = md.Symbol
	}
	if c.Name == "" {
		c.Name = md.Name
	}
}

func (s *Scanner) upsertOpportunity(ctx context.Context, c *domain.Candidate, d domain.Decision) {
	score := c.SafetyScore()
	err := s.opportunities.Upsert(ctx, &domain.Opportunity{
		TokenAddress: c.TokenAddress,
		Symbol:       c.Symbol,
		Source:       c.Source,
		PriceUSD:     c.PriceUSD,
		LiquidityUSD: c.LiquidityUSD,
		SafetyScore:  score,
		IsSafe:       s.decider.Thresholds().IsSafe(score),
		Action:       d.Action,
		Reason:       d.Reason,
		UpdatedAt:    s.now().UnixMilli(),
	})
	if err != nil {
		s.logger.Printf("upsert opportunity %s: %v", c.TokenAddress, err)
	}
}

// buy acts on a BUY decision. Returns true if a position was opened.
func (s *Scanner) buy(ctx context.Context, c *domain.Candidate, d domain.Decision) bool {
	symbol := displaySymbol(c)

	if !s.paperTrading {
		s.ledger.Log(ctx, domain.LogInfo, "Would have bought %s (%s): paper trading disabled", symbol, d.Reason)
		return false
	}

	open, err := s.ledger.HasOpen(ctx, c.TokenAddress)
	if err != nil {
		s.logger.Printf("check open position %s: %v", c.TokenAddress, err)
		return false
	}
	if open {
		s.ledger.Log(ctx, domain.LogInfo, "Would have bought %s (%s): position already open", symbol, d.Reason)
		return false
	}

	res, err := s.ledger.Open(ctx, c.TokenAddress, symbol, s.tradeSize)
	if err != nil {
		s.logger.Printf("open %s: %v", c.TokenAddress, err)
		s.ledger.Log(ctx, domain.LogError, "Failed to open %s: %v", symbol, err)
		return false
	}
	return res.Opened
}

// displaySymbol falls back to a shortened address.
func displaySymbol(c *domain.Candidate) string {
	if c.Symbol != "" {
		return c.Symbol
	}
	if len(c.TokenAddress) > 8 {
		return c.TokenAddress[:4] + ".." + c.TokenAddress[len(c.TokenAddress)-4:]
	}
	return c.TokenAddress
}
