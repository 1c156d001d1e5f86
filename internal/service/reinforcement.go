package service

import "leadagent/internal/model"

// ReinforcementInput is the tuple the tier rules look at
type ReinforcementInput struct {
	Budget       *int64
	Area         *string
	PropertyType *model.PropertyType
	Urgency      model.Urgency
	StatedIntent *string
	Tier         model.Tier
}

// ReinforcementInputFrom extracts the rule inputs from a normalized result
func ReinforcementInputFrom(r model.QualificationResult) ReinforcementInput {
	return ReinforcementInput{
		Budget:       r.Budget,
		Area:         r.Area,
		PropertyType: r.PropertyType,
		Urgency:      r.Urgency,
		StatedIntent: r.StatedIntent,
		Tier:         r.Tier,
	}
}

// ApplyRules returns the final tier for in. The classifier tier is advisory:
// rules are evaluated in order and the first one that applies decides.
// Reordering the branches changes outcomes for boundary inputs.
func ApplyRules(in ReinforcementInput) model.Tier {
	hasBudget := in.Budget != nil
	hasArea := in.Area != nil
	hasType := in.PropertyType != nil
	hasIntent := in.StatedIntent != nil
	medium := in.Urgency == model.UrgencyMedium

	tier := in.Tier
	if !tier.Valid() {
		tier = model.TierC
	}

	switch {
	case hasBudget && (hasArea || hasType) && hasIntent &&
		(in.Urgency == model.UrgencyHigh || medium):
		return model.TierA
	case (hasBudget && medium) || (hasType && medium):
		return model.TierB
	case tier == model.TierA && !hasBudget && !hasArea:
		return model.TierB
	case tier == model.TierB && in.Urgency == model.UrgencyLow:
		return model.TierC
	case hasBudget || hasType || hasArea:
		if tier == model.TierC {
			return model.TierB
		}
		return tier
	default:
		return tier
	}
}

// InterestFromTier derives the interest flags from a tier
func InterestFromTier(t model.Tier) (bool, model.InterestLevel) {
	switch t {
	case model.TierA:
		return true, model.InterestHigh
	case model.TierB:
		return true, model.InterestMedium
	default:
		return false, model.InterestLow
	}
}

// Reinforce applies the tier rules and interest derivation to r in place
func Reinforce(r *model.QualificationResult) {
	r.Tier = ApplyRules(ReinforcementInputFrom(*r))
	r.IsInterested, r.InterestLevel = InterestFromTier(r.Tier)
}
