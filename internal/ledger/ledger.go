// Package ledger owns the virtual SOL balance and the position lifecycle.
//
// Prices are resolved before the per-token lock is taken; the lock only
// covers the atomic store unit. Policy conflicts (duplicate open, close
// without open, insufficient balance) are reported as no-ops, not errors.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/idhash"
	"solana-paper-sniper/internal/observability"
	"solana-paper-sniper/internal/oracle"
	"solana-paper-sniper/internal/storage"
)

// solPrecision is the number of decimal places kept for SOL amounts (lamports).
const solPrecision = 9

// No-op reasons reported in results.
const (
	ReasonAlreadyOpen         = "position already open"
	ReasonNoOpenPosition      = "no open position"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonPriceUnknown        = "price unknown"
)

// Options configures Ledger.
type Options struct {
	Store  storage.LedgerStore // required
	Oracle oracle.PriceOracle  // required

	// SOLUSD converts between SOL and USD.
	SOLUSD float64
	// PlaceholderPrice fills opens whose price is unknown.
	PlaceholderPrice float64
	// Simulated marks positions and trades as paper fills.
	Simulated bool

	Logger *log.Logger
	Now    func() time.Time
}

// Ledger is the only writer of balance, positions and trades.
type Ledger struct {
	store            storage.LedgerStore
	oracle           oracle.PriceOracle
	solUSD           float64
	placeholderPrice float64
	simulated        bool
	logger           *log.Logger
	now              func() time.Time

	locks *keyedMutex
	seq   atomic.Uint64
}

// New creates a Ledger.
func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:            opts.Store,
		oracle:           opts.Oracle,
		solUSD:           opts.SOLUSD,
		placeholderPrice: opts.PlaceholderPrice,
		simulated:        opts.Simulated,
		logger:           logger,
		now:              now,
		locks:            newKeyedMutex(),
	}
}

// Init seeds the balance on first start and returns the current balance.
func (l *Ledger) Init(ctx context.Context, initial decimal.Decimal) (decimal.Decimal, error) {
	bal, err := l.store.InitBalance(ctx, initial)
	if err != nil {
		return decimal.Zero, fmt.Errorf("init balance: %w", err)
	}
	observability.UpdateBalance(bal.InexactFloat64())
	return bal, nil
}

// OpenResult describes the outcome of Open.
type OpenResult struct {
	Opened      bool
	PositionID  string
	PriceUSD    float64
	TokenAmount float64
	// Degraded is set when the fill used the placeholder price.
	Degraded bool
	// Reason explains a no-op.
	Reason string
}

// Open buys solAmount worth of token at the current price.
func (l *Ledger) Open(ctx context.Context, tokenAddress, symbol string, solAmount decimal.Decimal) (*OpenResult, error) {
	if tokenAddress == "" || !solAmount.IsPositive() {
		return nil, storage.ErrInvalidInput
	}

	open, err := l.HasOpen(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}
	if open {
		return &OpenResult{Reason: ReasonAlreadyOpen}, nil
	}

	quote := l.oracle.CurrentPrice(ctx, tokenAddress)
	res := &OpenResult{PriceUSD: quote.PriceUSD}
	if !quote.Known() {
		res.PriceUSD = l.placeholderPrice
		res.Degraded = true
	}
	if !finite(res.PriceUSD) || res.PriceUSD <= 0 || l.solUSD <= 0 {
		return nil, fmt.Errorf("open position %s: no usable price: %w", tokenAddress, storage.ErrInvalidInput)
	}
	res.TokenAmount = solAmount.InexactFloat64() * l.solUSD / res.PriceUSD
	if !finite(res.TokenAmount) {
		return nil, fmt.Errorf("open position %s: token amount overflow: %w", tokenAddress, storage.ErrInvalidInput)
	}

	unlock := l.locks.Lock(tokenAddress)
	defer unlock()

	now := l.now().UnixMilli()
	posID := idhash.ComputePositionID(tokenAddress, now, l.seq.Add(1))

	msg := fmt.Sprintf("BUY %s: %s SOL @ $%.10g (%.4f tokens)", symbol, solAmount.String(), res.PriceUSD, res.TokenAmount)
	if res.Degraded {
		msg += " [placeholder price]"
	}

	tx := &storage.OpenPositionTx{
		Position: &domain.Position{
			ID:              posID,
			TokenAddress:    tokenAddress,
			Symbol:          symbol,
			EntryPriceUSD:   res.PriceUSD,
			CurrentPriceUSD: res.PriceUSD,
			TokenAmount:     res.TokenAmount,
			SOLCost:         solAmount,
			MarketCapUSD:    quote.MarketCapUSD,
			Status:          domain.PositionOpen,
			Simulated:       l.simulated,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Trade: &domain.Trade{
			ID:           idhash.ComputeTradeID(posID, domain.SideBuy, now),
			PositionID:   posID,
			TokenAddress: tokenAddress,
			Symbol:       symbol,
			Side:         domain.SideBuy,
			SOLAmount:    solAmount,
			TokenAmount:  res.TokenAmount,
			PriceUSD:     res.PriceUSD,
			Simulated:    l.simulated,
			CreatedAt:    now,
		},
		Log: &domain.LogEntry{CreatedAt: now, Level: domain.LogSuccess, Message: msg},
	}

	err = l.store.OpenPosition(ctx, tx)
	switch {
	case errors.Is(err, storage.ErrPositionExists):
		return &OpenResult{Reason: ReasonAlreadyOpen}, nil
	case errors.Is(err, storage.ErrInsufficientBalance):
		l.Log(ctx, domain.LogWarn, "Insufficient balance to buy %s (%s SOL)", symbol, solAmount.String())
		return &OpenResult{Reason: ReasonInsufficientBalance}, nil
	case err != nil:
		return nil, fmt.Errorf("open position %s: %w", tokenAddress, err)
	}

	res.Opened = true
	res.PositionID = posID
	l.logger.Print(msg)
	observability.RecordPositionOpened(res.Degraded)
	l.refreshBalanceGauge(ctx)
	return res, nil
}

// CloseResult describes the outcome of Close.
type CloseResult struct {
	Closed      bool
	PositionID  string
	PriceUSD    float64
	SOLProceeds decimal.Decimal
	PnLPct      float64
	// Degraded is set when the close was skipped for lack of a price.
	Degraded bool
	Reason   string
}

// Close sells tokenAmount of the token's OPEN position and marks it CLOSED.
// tokenAmount <= 0, or above the held amount, sells the whole position.
func (l *Ledger) Close(ctx context.Context, tokenAddress string, tokenAmount float64, reason domain.ExitReason) (*CloseResult, error) {
	pos, err := l.store.GetOpenByToken(ctx, tokenAddress)
	if errors.Is(err, storage.ErrNotFound) {
		return &CloseResult{Reason: ReasonNoOpenPosition}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open position %s: %w", tokenAddress, err)
	}

	if tokenAmount <= 0 || tokenAmount > pos.TokenAmount {
		tokenAmount = pos.TokenAmount
	}
	if reason == "" {
		reason = domain.ExitManual
	}

	quote := l.oracle.CurrentPrice(ctx, tokenAddress)
	proceeds := tokenAmount * quote.PriceUSD / l.solUSD
	if !quote.Known() || !finite(proceeds) {
		l.Log(ctx, domain.LogWarn, "Price unknown for %s, close deferred", pos.Symbol)
		return &CloseResult{PositionID: pos.ID, Degraded: true, Reason: ReasonPriceUnknown}, nil
	}

	res := &CloseResult{
		PositionID:  pos.ID,
		PriceUSD:    quote.PriceUSD,
		SOLProceeds: decimal.NewFromFloat(proceeds).Round(solPrecision),
		PnLPct:      domain.PnLPct(pos.EntryPriceUSD, quote.PriceUSD),
	}

	unlock := l.locks.Lock(tokenAddress)
	defer unlock()

	now := l.now().UnixMilli()
	level := domain.LogSuccess
	if res.PnLPct < 0 {
		level = domain.LogWarn
	}
	msg := fmt.Sprintf("SELL %s (%s): %s SOL @ $%.10g, PnL %.2f%%",
		pos.Symbol, reason, res.SOLProceeds.String(), res.PriceUSD, res.PnLPct)

	err = l.store.ClosePosition(ctx, &storage.ClosePositionTx{
		PositionID:   pos.ID,
		ExitPriceUSD: res.PriceUSD,
		PnLPct:       res.PnLPct,
		ExitReason:   reason,
		ClosedAt:     now,
		Trade: &domain.Trade{
			ID:           idhash.ComputeTradeID(pos.ID, domain.SideSell, now),
			PositionID:   pos.ID,
			TokenAddress: tokenAddress,
			Symbol:       pos.Symbol,
			Side:         domain.SideSell,
			SOLAmount:    res.SOLProceeds,
			TokenAmount:  tokenAmount,
			PriceUSD:     res.PriceUSD,
			Simulated:    pos.Simulated,
			CreatedAt:    now,
		},
		Log: &domain.LogEntry{CreatedAt: now, Level: level, Message: msg},
	})
	if errors.Is(err, storage.ErrPositionNotOpen) {
		return &CloseResult{PositionID: pos.ID, Reason: ReasonNoOpenPosition}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("close position %s: %w", pos.ID, err)
	}

	res.Closed = true
	l.logger.Print(msg)
	observability.RecordPositionClosed(string(reason))
	l.refreshBalanceGauge(ctx)
	return res, nil
}

// RefreshPnL stores the latest price and PnL of an OPEN position.
// Returns updated=false for a closed or missing position or a non-positive price.
func (l *Ledger) RefreshPnL(ctx context.Context, positionID string, priceUSD float64, marketCapUSD *float64) (pnlPct float64, updated bool, err error) {
	if priceUSD <= 0 || !finite(priceUSD) {
		return 0, false, nil
	}

	pos, err := l.store.GetPosition(ctx, positionID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get position %s: %w", positionID, err)
	}
	if !pos.IsOpen() {
		return pos.PnLPct, false, nil
	}

	pnlPct = domain.PnLPct(pos.EntryPriceUSD, priceUSD)
	err = l.store.UpdatePnL(ctx, positionID, priceUSD, pnlPct, marketCapUSD, l.now().UnixMilli())
	if errors.Is(err, storage.ErrPositionNotOpen) {
		return pnlPct, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("update pnl %s: %w", positionID, err)
	}

	observability.RecordPnLRefresh()
	return pnlPct, true, nil
}

// HasOpen reports whether the token has an OPEN position.
func (l *Ledger) HasOpen(ctx context.Context, tokenAddress string) (bool, error) {
	_, err := l.store.GetOpenByToken(ctx, tokenAddress)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get open position %s: %w", tokenAddress, err)
	}
	return true, nil
}

// BalanceView is the balance in SOL and its USD equivalent.
type BalanceView struct {
	SOL decimal.Decimal
	USD float64
}

// Balance returns the virtual balance.
func (l *Ledger) Balance(ctx context.Context) (BalanceView, error) {
	bal, err := l.store.Balance(ctx)
	if err != nil {
		return BalanceView{}, fmt.Errorf("get balance: %w", err)
	}
	return BalanceView{SOL: bal, USD: bal.InexactFloat64() * l.solUSD}, nil
}

// GetPosition returns a position by ID.
func (l *Ledger) GetPosition(ctx context.Context, positionID string) (*domain.Position, error) {
	return l.store.GetPosition(ctx, positionID)
}

// ListOpen returns all OPEN positions.
func (l *Ledger) ListOpen(ctx context.Context) ([]*domain.Position, error) {
	return l.store.ListOpen(ctx)
}

// ListRecentTrades returns up to limit trades, newest first.
func (l *Ledger) ListRecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	return l.store.ListRecentTrades(ctx, limit)
}

// ListRecentLogs returns up to limit log entries, newest first.
func (l *Ledger) ListRecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	return l.store.ListRecentLogs(ctx, limit)
}

// Log appends an operator-facing journal entry and mirrors it to the process log.
// Journal failures are reported on the process log only.
func (l *Ledger) Log(ctx context.Context, level domain.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("%s %s", level, msg)

	err := l.store.AppendLog(ctx, &domain.LogEntry{
		CreatedAt: l.now().UnixMilli(),
		Level:     level,
		Message:   msg,
	})
	if err != nil {
		l.logger.Printf("append log: %v", err)
	}
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (l *Ledger) refreshBalanceGauge(ctx context.Context) {
	if bal, err := l.store.Balance(ctx); err == nil {
		observability.UpdateBalance(bal.InexactFloat64())
	}
}
