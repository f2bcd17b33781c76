package decision

import (
	"math/rand"
	"sync"

	"solana-paper-sniper/internal/domain"
)

// RandomScorer draws confidence uniformly from [Min, Max].
// Stand-in for a real model; safe for concurrent use.
type RandomScorer struct {
	min, max float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer creates a scorer over [min, max] seeded with seed.
// Bounds are swapped if given in reverse.
func NewRandomScorer(min, max float64, seed int64) *RandomScorer {
	if min > max {
		min, max = max, min
	}
	return &RandomScorer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(seed)),
	}
}

var _ ConfidenceScorer = (*RandomScorer)(nil)

// Score implements ConfidenceScorer.
func (s *RandomScorer) Score(_ *domain.Candidate) float64 {
	s.mu.Lock()
	f := s.rng.Float64()
	s.mu.Unlock()
	return s.min + f*(s.max-s.min)
}

// FixedScorer always returns the same confidence.
type FixedScorer float64

var _ ConfidenceScorer = FixedScorer(0)

// Score implements ConfidenceScorer.
func (s FixedScorer) Score(_ *domain.Candidate) float64 {
	return float64(s)
}
