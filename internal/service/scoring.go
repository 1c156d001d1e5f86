package service

import (
	"math"
	"strings"

	"leadagent/internal/model"
)

// Score weights
const (
	weightUrgencyHigh   = 40.0
	weightUrgencyMedium = 25.0
	weightUrgencyLow    = 10.0

	weightAreaMatch   = 15.0
	weightBudgetMatch = 25.0
	weightBothMatched = 10.0

	penaltyBudgetUnmatched = 5.0
	penaltyNoArea          = 5.0

	budgetTolerance    = 0.15
	budgetToleranceMin = 1.0

	scoreTierA = 70.0
	scoreTierB = 40.0
)

// Scorer computes intent scores against a property catalog
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// CalculateIntentScore scores purchase readiness in [0, 100] and derives a
// tier from it. The catalog is read only.
func (s *Scorer) CalculateIntentScore(
	area *string,
	budget *float64,
	urgency model.Urgency,
	catalog []model.Property,
) (float64, model.Tier) {
	score := s.urgencyWeight(urgency)

	wantArea := ""
	if area != nil {
		wantArea = strings.ToLower(strings.TrimSpace(*area))
	}

	areaMatched, budgetMatched := false, false
	for _, p := range catalog {
		if wantArea != "" && strings.Contains(strings.ToLower(p.Area), wantArea) {
			score += weightAreaMatch
			areaMatched = true
		}
		if budget != nil && s.priceWithinBudget(p.Price, *budget) {
			score += weightBudgetMatch
			budgetMatched = true
		}
	}

	if areaMatched && budgetMatched {
		score += weightBothMatched
	}
	// a zero budget counts as no budget
	if budget != nil && *budget != 0 && !budgetMatched {
		score -= penaltyBudgetUnmatched
	}
	if wantArea == "" {
		score -= penaltyNoArea
	}

	score = clampScore(score)
	return score, TierFromScore(score)
}

// urgencyWeight returns the base weight for an urgency; unknown values weigh 0
func (s *Scorer) urgencyWeight(u model.Urgency) float64 {
	switch u {
	case model.UrgencyHigh:
		return weightUrgencyHigh
	case model.UrgencyMedium:
		return weightUrgencyMedium
	case model.UrgencyLow:
		return weightUrgencyLow
	default:
		return 0
	}
}

// priceWithinBudget reports whether price lies within 15% of budget, with a
// minimum absolute tolerance of one unit. Zero prices or budgets never match.
func (s *Scorer) priceWithinBudget(price, budget float64) bool {
	if price == 0 || budget == 0 {
		return false
	}
	tolerance := math.Max(budget*budgetTolerance, budgetToleranceMin)
	return math.Abs(price-budget) <= tolerance
}

// TierFromScore maps a score to a tier: >=70 A, >=40 B, else C
func TierFromScore(score float64) model.Tier {
	switch {
	case score >= scoreTierA:
		return model.TierA
	case score >= scoreTierB:
		return model.TierB
	default:
		return model.TierC
	}
}

// TierBasedScore estimates an intent score from the reinforced tier when no
// catalog is available to match against
func TierBasedScore(r model.QualificationResult) float64 {
	var score float64
	switch r.Tier {
	case model.TierA:
		score = 88
	case model.TierB:
		score = 65
	case model.TierC:
		score = 32
	default:
		score = 20
	}

	switch r.Urgency {
	case model.UrgencyHigh:
		score += 7
	case model.UrgencyMedium:
		score += 3
	}
	if r.Budget != nil {
		score += 3
	}
	if r.Area != nil {
		score += 2
	}
	if r.PropertyType != nil {
		score += 2
	}
	return clampScore(score)
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// budgetAsFloat converts a normalized budget for scoring
func budgetAsFloat(b *int64) *float64 {
	if b == nil {
		return nil
	}
	f := float64(*b)
	return &f
}
