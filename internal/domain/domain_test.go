package domain

import (
	"math"
	"testing"
)

func TestPnLPct(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		current float64
		want    float64
	}{
		{"stop loss drop", 1.00, 0.80, -20},
		{"small gain", 1.00, 1.10, 10},
		{"flat", 2.5, 2.5, 0},
		{"zero entry", 0, 1, 0},
		{"negative entry", -1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PnLPct(tt.entry, tt.current)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PnLPct(%v, %v) = %v, want %v", tt.entry, tt.current, got, tt.want)
			}
		})
	}
}

func TestCandidate_SafetyScore(t *testing.T) {
	tests := []struct {
		mint, lp bool
		want     int
	}{
		{false, false, 0},
		{true, false, 50},
		{false, true, 50},
		{true, true, 100},
	}

	for _, tt := range tests {
		c := &Candidate{MintDisabled: tt.mint, LPBurnt: tt.lp}
		if got := c.SafetyScore(); got != tt.want {
			t.Errorf("SafetyScore(mint=%v, lp=%v) = %d, want %d", tt.mint, tt.lp, got, tt.want)
		}
	}
}
