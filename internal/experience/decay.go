// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package experience

import (
	"math"
	"time"

	"github.com/kairn-ai/kairn/internal/store"
)

// Baseline half-lives in days, per experience type.
var halfLives = map[store.ExperienceType]float64{
	store.ExperienceSolution:   200,
	store.ExperiencePattern:    300,
	store.ExperienceDecision:   100,
	store.ExperienceWorkaround: 50,
	store.ExperienceGotcha:     200,
}

// Decay speed-up per confidence level.
var multipliers = map[store.Confidence]float64{
	store.ConfidenceHigh:   1,
	store.ConfidenceMedium: 2,
	store.ConfidenceLow:    4,
}

// HalfLife returns the baseline half-life in days for t, or 0 for an
// unknown type.
func HalfLife(t store.ExperienceType) float64 { return halfLives[t] }

// Multiplier returns the decay multiplier for c, or 0 for an unknown level.
func Multiplier(c store.Confidence) float64 { return multipliers[c] }

// DecayRate returns ln2 × multiplier / halfLife, the per-day decay constant.
func DecayRate(t store.ExperienceType, c store.Confidence) float64 {
	hl, m := halfLives[t], multipliers[c]
	if hl == 0 || m == 0 {
		return 0
	}
	return math.Ln2 * m / hl
}

// Relevance is score × e^(−rate × days since creation). Times before creation
// count as zero elapsed days.
func Relevance(e *store.Experience, at time.Time) float64 {
	days := at.Sub(e.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return e.Score * math.Exp(-e.DecayRate*days)
}
