package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

func TestPnLHistoryStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPnLHistoryStore(conn)

	points := []*domain.PnLPoint{
		{PositionID: "p1", TokenAddress: "mint1", TimestampMs: 3000, PriceUSD: 1.1, PnLPct: 10, MarketCapUSD: 110000},
		{PositionID: "p1", TokenAddress: "mint1", TimestampMs: 1000, PriceUSD: 1.0, PnLPct: 0},
		{PositionID: "p2", TokenAddress: "mint2", TimestampMs: 2000, PriceUSD: 0.5, PnLPct: -50},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByPosition(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
	assert.Equal(t, 10.0, got[1].PnLPct)
	assert.Equal(t, 110000.0, got[1].MarketCapUSD)
}

func TestPnLHistoryStore_EmptyAndInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPnLHistoryStore(conn)

	assert.NoError(t, store.InsertBulk(ctx, nil))

	err := store.InsertBulk(ctx, []*domain.PnLPoint{{PositionID: ""}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.GetByPosition(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}
