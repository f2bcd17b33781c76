// Package decision implements the candidate gating policy.
//
// Gates run in a fixed order and the first failing gate decides:
// liquidity, volume, safety, confidence.
package decision

import "solana-paper-sniper/internal/domain"

// Thresholds are the configured gate limits.
type Thresholds struct {
	MinLiquidityUSD  float64
	MinVolumeUSD     float64
	SafetyThreshold  int     // 0-100
	AutoBuyThreshold float64 // 0-100
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLiquidityUSD:  10000,
		MinVolumeUSD:     50000,
		SafetyThreshold:  80,
		AutoBuyThreshold: 80,
	}
}

// IsSafe reports whether a safety score passes the threshold.
func (t Thresholds) IsSafe(score int) bool {
	return score >= t.SafetyThreshold
}

// ConfidenceScorer rates a candidate that passed the hard gates, 0-100.
type ConfidenceScorer interface {
	Score(c *domain.Candidate) float64
}
