// Package routing makes the terminal generate-or-fallback decision for a
// ranked candidate list.
package routing

import (
	"github.com/bartek-filipiuk/youtube-talker/internal/types"
)

// DefaultThreshold is the minimum top score required to proceed to grounded
// answer generation. Overridable through configuration; the historical values
// 0.3 and 0.4 were reconciled to 0.40.
const DefaultThreshold = 0.40

// Router compares the top candidate score against a fixed threshold.
// It holds no state between calls; Route is a pure function of its input.
type Router struct {
	threshold float64
}

// NewRouter creates a router with the given threshold.
// A non-positive threshold selects DefaultThreshold.
func NewRouter(threshold float64) *Router {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Router{threshold: threshold}
}

// Threshold returns the configured routing threshold.
func (r *Router) Threshold() float64 {
	return r.threshold
}

// Route emits generate when the top score meets the threshold, fallback
// otherwise. An empty list always falls back with a top score of 0.0.
func (r *Router) Route(ranked []types.RankedCandidate) types.RoutingDecision {
	decision := types.RoutingDecision{
		Outcome:        types.OutcomeFallback,
		CandidateCount: len(ranked),
	}
	if len(ranked) == 0 {
		return decision
	}

	decision.TopScore = ranked[0].Score
	if decision.TopScore >= r.threshold {
		decision.Outcome = types.OutcomeGenerate
	}
	return decision
}
