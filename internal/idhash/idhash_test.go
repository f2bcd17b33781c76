package idhash

import (
	"testing"

	"solana-paper-sniper/internal/domain"
)

func TestComputePositionID(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		openedAt int64
	}{
		{name: "pump token", token: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", openedAt: 1704067234567},
		{name: "empty token", token: "", openedAt: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePositionID(tt.token, tt.openedAt, 1)
			if len(got) != 64 {
				t.Errorf("ComputePositionID() length = %d, want 64", len(got))
			}
			if again := ComputePositionID(tt.token, tt.openedAt, 1); again != got {
				t.Errorf("ComputePositionID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputePositionID_DiffersByOpenTime(t *testing.T) {
	token := "So11111111111111111111111111111111111111112"

	a := ComputePositionID(token, 1000, 1)
	b := ComputePositionID(token, 1001, 1)
	if a == b {
		t.Error("reopening the same token must produce a new position id")
	}
}

func TestComputePositionID_DiffersBySequenceWithinMillisecond(t *testing.T) {
	token := "So11111111111111111111111111111111111111112"

	a := ComputePositionID(token, 1000, 1)
	b := ComputePositionID(token, 1000, 2)
	if a == b {
		t.Error("positions opened in the same millisecond must have distinct ids")
	}
}

func TestComputeTradeID_SidesDiffer(t *testing.T) {
	positionID := ComputePositionID("mint", 1000, 1)

	buy := ComputeTradeID(positionID, domain.SideBuy, 1000)
	sell := ComputeTradeID(positionID, domain.SideSell, 1000)
	if buy == sell {
		t.Error("BUY and SELL trades of one position must have distinct ids")
	}
	if len(buy) != 64 || len(sell) != 64 {
		t.Errorf("unexpected hash lengths: %d, %d", len(buy), len(sell))
	}
}
