package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

func TestOpportunityStore_UpsertOverwrites(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewOpportunityStore(pool)

	first := &domain.Opportunity{
		TokenAddress: "mint1",
		Symbol:       "AAA",
		Source:       "pumpfun",
		PriceUSD:     0.0001,
		LiquidityUSD: 1000,
		SafetyScore:  50,
		Action:       domain.ActionSkip,
		Reason:       domain.ReasonLowLiquidity,
		UpdatedAt:    1000,
	}
	require.NoError(t, store.Upsert(ctx, first))

	second := *first
	second.LiquidityUSD = 20000
	second.SafetyScore = 100
	second.IsSafe = true
	second.Action = domain.ActionBuy
	second.Reason = domain.ReasonAutoBuy
	second.UpdatedAt = 2000
	require.NoError(t, store.Upsert(ctx, &second))

	got, err := store.GetByToken(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, 20000.0, got.LiquidityUSD)
	assert.Equal(t, 100, got.SafetyScore)
	assert.True(t, got.IsSafe)
	assert.Equal(t, domain.ActionBuy, got.Action)

	all, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpportunityStore_ListRecentOrder(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewOpportunityStore(pool)

	for i, token := range []string{"a", "b", "c"} {
		require.NoError(t, store.Upsert(ctx, &domain.Opportunity{TokenAddress: token, UpdatedAt: int64(1000 + i)}))
	}

	got, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].TokenAddress)
	assert.Equal(t, "b", got[1].TokenAddress)
}

func TestOpportunityStore_GetNotFound(t *testing.T) {
	pool := newTestPool(t)

	store := NewOpportunityStore(pool)

	_, err := store.GetByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
