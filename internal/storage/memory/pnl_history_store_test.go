package memory

import (
	"context"
	"errors"
	"testing"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/storage"
)

func TestPnLHistoryStore_InsertAndGetOrdered(t *testing.T) {
	store := NewPnLHistoryStore()
	ctx := context.Background()

	points := []*domain.PnLPoint{
		{PositionID: "p1", TokenAddress: "mint1", TimestampMs: 3000, PriceUSD: 1.2, PnLPct: 20},
		{PositionID: "p1", TokenAddress: "mint1", TimestampMs: 1000, PriceUSD: 1.0, PnLPct: 0},
		{PositionID: "p2", TokenAddress: "mint2", TimestampMs: 2000, PriceUSD: 5.0, PnLPct: 0},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByPosition(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByPosition failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 || got[1].TimestampMs != 3000 {
		t.Errorf("points not ordered by timestamp: %d, %d", got[0].TimestampMs, got[1].TimestampMs)
	}
}

func TestPnLHistoryStore_InvalidBatchRejected(t *testing.T) {
	store := NewPnLHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PnLPoint{
		{PositionID: "p1", TimestampMs: 1},
		{PositionID: "", TimestampMs: 2},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}

	got, _ := store.GetByPosition(ctx, "p1")
	if len(got) != 0 {
		t.Errorf("invalid batch must not be partially applied, got %d points", len(got))
	}
}
