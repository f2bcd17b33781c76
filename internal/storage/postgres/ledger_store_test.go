package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

func newOpenTx(positionID, token, sol string, at int64) *storage.OpenPositionTx {
	amount := decimal.RequireFromString(sol)
	return &storage.OpenPositionTx{
		Position: &domain.Position{
			ID:              positionID,
			TokenAddress:    token,
			Symbol:          "TKN",
			EntryPriceUSD:   1.0,
			CurrentPriceUSD: 1.0,
			TokenAmount:     15,
			SOLCost:         amount,
			Status:          domain.PositionOpen,
			Simulated:       true,
			CreatedAt:       at,
			UpdatedAt:       at,
		},
		Trade: &domain.Trade{
			ID:           "buy-" + positionID,
			PositionID:   positionID,
			TokenAddress: token,
			Symbol:       "TKN",
			Side:         domain.SideBuy,
			SOLAmount:    amount,
			TokenAmount:  15,
			PriceUSD:     1.0,
			Simulated:    true,
			CreatedAt:    at,
		},
		Log: &domain.LogEntry{CreatedAt: at, Level: domain.LogSuccess, Message: "opened " + token},
	}
}

func newCloseTx(positionID, token, sol string, at int64) *storage.ClosePositionTx {
	return &storage.ClosePositionTx{
		PositionID:   positionID,
		ExitPriceUSD: 0.8,
		PnLPct:       -20,
		ExitReason:   domain.ExitStopLoss,
		ClosedAt:     at,
		Trade: &domain.Trade{
			ID:           "sell-" + positionID,
			PositionID:   positionID,
			TokenAddress: token,
			Symbol:       "TKN",
			Side:         domain.SideSell,
			SOLAmount:    decimal.RequireFromString(sol),
			TokenAmount:  15,
			PriceUSD:     0.8,
			Simulated:    true,
			CreatedAt:    at,
		},
		Log: &domain.LogEntry{CreatedAt: at, Level: domain.LogWarn, Message: "closed " + token},
	}
}

func TestLedgerStore_OpenAndClose(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)

	bal, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)))

	require.NoError(t, store.OpenPosition(ctx, newOpenTx("p1", "mint1", "0.1", 1000)))

	bal, err = store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("9.9")), "balance after open: %s", bal)

	open, err := store.GetOpenByToken(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, "p1", open.ID)
	assert.True(t, open.SOLCost.Equal(decimal.RequireFromString("0.1")))
	assert.Nil(t, open.MarketCapUSD)

	require.NoError(t, store.ClosePosition(ctx, newCloseTx("p1", "mint1", "0.08", 2000)))

	bal, err = store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("9.98")), "balance after close: %s", bal)

	closed, err := store.GetPosition(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosed, closed.Status)
	assert.Equal(t, -20.0, closed.PnLPct)
	assert.Equal(t, domain.ExitStopLoss, closed.ExitReason)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, int64(2000), *closed.ClosedAt)

	trades, err := store.ListRecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.SideSell, trades[0].Side)
	assert.Equal(t, domain.SideBuy, trades[1].Side)

	logs, err := store.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestLedgerStore_DuplicateOpen(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, store.OpenPosition(ctx, newOpenTx("p1", "mint1", "1", 1000)))

	err = store.OpenPosition(ctx, newOpenTx("p2", "mint1", "1", 2000))
	assert.ErrorIs(t, err, storage.ErrPositionExists)

	// Rolled back: no debit, no trade, no log
	bal, err := store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(9)))

	trades, err := store.ListRecentTrades(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	logs, err := store.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLedgerStore_OpenRollsBackOnTradeConflict(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, store.OpenPosition(ctx, newOpenTx("p1", "mint1", "1", 1000)))

	// position insert and debit succeed, the BUY insert then collides
	op := newOpenTx("p2", "mint2", "2", 2000)
	op.Trade.ID = "buy-p1"
	err = store.OpenPosition(ctx, op)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	bal, err := store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(9)), "balance: %s", bal)

	_, err = store.GetOpenByToken(ctx, "mint2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetPosition(ctx, "p2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	trades, err := store.ListRecentTrades(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	logs, err := store.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLedgerStore_CloseRollsBackOnTradeConflict(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, store.OpenPosition(ctx, newOpenTx("p1", "mint1", "1", 1000)))

	// status update and credit succeed, the SELL insert then collides
	cl := newCloseTx("p1", "mint1", "0.8", 2000)
	cl.Trade.ID = "buy-p1"
	err = store.ClosePosition(ctx, cl)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	pos, err := store.GetOpenByToken(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, "p1", pos.ID)
	assert.Equal(t, domain.PositionOpen, pos.Status)
	assert.Nil(t, pos.ClosedAt)

	bal, err := store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(9)), "balance: %s", bal)

	trades, err := store.ListRecentTrades(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	logs, err := store.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLedgerStore_InsufficientBalance(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	err = store.OpenPosition(ctx, newOpenTx("p1", "mint1", "0.1", 1000))
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestLedgerStore_CloseNotOpen(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)

	err = store.ClosePosition(ctx, newCloseTx("missing", "mint1", "1", 1000))
	assert.ErrorIs(t, err, storage.ErrPositionNotOpen)

	bal, err := store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(10)))
}

func TestLedgerStore_UpdatePnL(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, store.OpenPosition(ctx, newOpenTx("p1", "mint1", "1", 1000)))

	require.NoError(t, store.UpdatePnL(ctx, "p1", 1.1, 10, ptr(250000.0), 2000))

	// nil market cap keeps the previous snapshot
	require.NoError(t, store.UpdatePnL(ctx, "p1", 1.2, 20, nil, 3000))

	pos, err := store.GetPosition(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, pos.PnLPct)
	assert.Equal(t, 1.2, pos.CurrentPriceUSD)
	require.NotNil(t, pos.MarketCapUSD)
	assert.Equal(t, 250000.0, *pos.MarketCapUSD)

	err = store.UpdatePnL(ctx, "missing", 1, 0, nil, 4000)
	assert.ErrorIs(t, err, storage.ErrPositionNotOpen)
}

func TestLedgerStore_LogRetention(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 3)

	for i := 0; i < 5; i++ {
		e := &domain.LogEntry{CreatedAt: int64(i), Level: domain.LogInfo, Message: fmt.Sprintf("msg %d", i)}
		require.NoError(t, store.AppendLog(ctx, e))
		assert.NotZero(t, e.ID)
	}

	logs, err := store.ListRecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "msg 4", logs[0].Message)
	assert.Equal(t, "msg 2", logs[2].Message)
}

func TestLedgerStore_ConcurrentOpenSameToken(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewLedgerStore(pool, 0)
	_, err := store.InitBalance(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	opened := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.OpenPosition(ctx, newOpenTx(fmt.Sprintf("p%d", i), "mint1", "1", int64(1000+i))); err == nil {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, opened)

	bal, err := store.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(99)), "balance: %s", bal)
}
