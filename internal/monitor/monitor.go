// Package monitor polls open positions, refreshes their PnL and applies
// stop-loss and take-profit exits.
package monitor

import (
	"context"
	"log"
	"time"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/ledger"
	"solana-paper-sniper/internal/loop"
	"solana-paper-sniper/internal/observability"
	"solana-paper-sniper/internal/oracle"
	"solana-paper-sniper/internal/storage"
)

// Defaults.
const (
	DefaultStopLossPct   = 15.0
	DefaultTakeProfitPct = 30.0
	DefaultInterval      = 5 * time.Second
)

// Ledger is the subset of the ledger the monitor needs.
type Ledger interface {
	ListOpen(ctx context.Context) ([]*domain.Position, error)
	RefreshPnL(ctx context.Context, positionID string, priceUSD float64, marketCapUSD *float64) (float64, bool, error)
	Close(ctx context.Context, tokenAddress string, tokenAmount float64, reason domain.ExitReason) (*ledger.CloseResult, error)
}

// Options configures Monitor.
type Options struct {
	Ledger  Ledger                  // required
	Oracle  oracle.PriceOracle      // required
	History storage.PnLHistoryStore // optional

	// StopLossPct closes when PnL <= -StopLossPct. 0 uses the default.
	StopLossPct float64
	// TakeProfitPct closes when PnL >= TakeProfitPct. 0 uses the default.
	TakeProfitPct float64

	Interval     time.Duration
	CycleTimeout time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

// Stats summarizes one monitor cycle.
type Stats struct {
	Open        int
	Refreshed   int
	Unpriced    int
	StopLosses  int
	TakeProfits int
	Errors      int
	Points      int
	Duration    time.Duration
}

// Monitor is the PnL monitor loop.
type Monitor struct {
	ledger     Ledger
	oracle     oracle.PriceOracle
	history    storage.PnLHistoryStore
	stopLoss   float64
	takeProfit float64
	logger     *log.Logger
	now        func() time.Time
	runner     *loop.Runner
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	stopLoss := opts.StopLossPct
	if stopLoss <= 0 {
		stopLoss = DefaultStopLossPct
	}
	takeProfit := opts.TakeProfitPct
	if takeProfit <= 0 {
		takeProfit = DefaultTakeProfitPct
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	m := &Monitor{
		ledger:     opts.Ledger,
		oracle:     opts.Oracle,
		history:    opts.History,
		stopLoss:   stopLoss,
		takeProfit: takeProfit,
		logger:     logger,
		now:        now,
	}
	m.runner = loop.New(loop.Options{
		Name:     "monitor",
		Interval: interval,
		Timeout:  opts.CycleTimeout,
		Cycle:    func(ctx context.Context) { m.RunOnce(ctx) },
		Logger:   logger,
	})
	return m
}

// Run monitors immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	return m.runner.Run(ctx)
}

// Stats returns the loop counters.
func (m *Monitor) Stats() loop.Stats {
	return m.runner.Stats()
}

// ExitReason returns the exit triggered by pnlPct, or "" to hold.
func (m *Monitor) ExitReason(pnlPct float64) domain.ExitReason {
	switch {
	case pnlPct <= -m.stopLoss:
		return domain.ExitStopLoss
	case pnlPct >= m.takeProfit:
		return domain.ExitTakeProfit
	default:
		return ""
	}
}

// RunOnce checks every open position once.
func (m *Monitor) RunOnce(ctx context.Context) Stats {
	start := time.Now()
	var stats Stats

	positions, err := m.ledger.ListOpen(ctx)
	if err != nil {
		m.logger.Printf("list open positions: %v", err)
		observability.RecordMonitorCycle("error", 0)
		stats.Errors++
		return stats
	}
	stats.Open = len(positions)

	points := make([]*domain.PnLPoint, 0, len(positions))
	for _, pos := range positions {
		if ctx.Err() != nil {
			m.logger.Printf("cycle interrupted: %v", ctx.Err())
			break
		}
		if pt := m.check(ctx, pos, &stats); pt != nil {
			points = append(points, pt)
		}
	}

	if m.history != nil && len(points) > 0 {
		if err := m.history.InsertBulk(ctx, points); err != nil {
			m.logger.Printf("insert pnl history: %v", err)
			stats.Errors++
		} else {
			stats.Points = len(points)
		}
	}

	stats.Duration = time.Since(start)
	observability.RecordMonitorCycle("ok", stats.Open)
	return stats
}

// check refreshes one position and closes it on an exit threshold.
// Returns the PnL point to record, or nil.
func (m *Monitor) check(ctx context.Context, pos *domain.Position, stats *Stats) *domain.PnLPoint {
	quote := m.oracle.CurrentPrice(ctx, pos.TokenAddress)
	if !quote.Known() {
		stats.Unpriced++
		m.logger.Printf("DEBUG no price for %s (%s), skipping", pos.Symbol, pos.TokenAddress)
		return nil
	}

	pnl, updated, err := m.ledger.RefreshPnL(ctx, pos.ID, quote.PriceUSD, quote.MarketCapUSD)
	if err != nil {
		stats.Errors++
		m.logger.Printf("refresh pnl %s: %v", pos.ID, err)
		return nil
	}
	if !updated {
		return nil
	}
	stats.Refreshed++

	pt := &domain.PnLPoint{
		PositionID:   pos.ID,
		TokenAddress: pos.TokenAddress,
		TimestampMs:  m.now().UnixMilli(),
		PriceUSD:     quote.PriceUSD,
		PnLPct:       pnl,
	}
	if quote.MarketCapUSD != nil {
		pt.MarketCapUSD = *quote.MarketCapUSD
	}

	reason := m.ExitReason(pnl)
	if reason == "" {
		return pt
	}

	res, err := m.ledger.Close(ctx, pos.TokenAddress, pos.TokenAmount, reason)
	if err != nil {
		stats.Errors++
		m.logger.Printf("close %s (%s): %v", pos.ID, reason, err)
		return pt
	}
	if !res.Closed {
		m.logger.Printf("close %s (%s) deferred: %s", pos.ID, reason, res.Reason)
		return pt
	}

	switch reason {
	case domain.ExitStopLoss:
		stats.StopLosses++
	case domain.ExitTakeProfit:
		stats.TakeProfits++
	}
	return pt
}
