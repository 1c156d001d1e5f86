package model

// Tier is the coarse lead-quality classification, A (best) through C.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Valid reports whether t is one of A, B or C
func (t Tier) Valid() bool {
	return t == TierA || t == TierB || t == TierC
}

// Urgency is how soon the lead wants to close
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Valid reports whether u is one of high, medium or low
func (u Urgency) Valid() bool {
	return u == UrgencyHigh || u == UrgencyMedium || u == UrgencyLow
}

// PropertyType is the normalized kind of property the lead is after
type PropertyType string

const (
	PropertyApartment      PropertyType = "apartment"
	PropertyHouse          PropertyType = "house"
	PropertyCommercialUnit PropertyType = "commercial_unit"
	PropertyLot            PropertyType = "lot"
	PropertyOffice         PropertyType = "office"
	PropertyFarm           PropertyType = "farm"
	PropertyOther          PropertyType = "other"
)

// InterestLevel is the tier expressed as an interest bucket
type InterestLevel string

const (
	InterestHigh   InterestLevel = "HIGH"
	InterestMedium InterestLevel = "MEDIUM"
	InterestLow    InterestLevel = "LOW"
)

// QualificationResult is the normalized output of the qualification engine
type QualificationResult struct {
	Budget        *int64        `json:"budget"`
	Area          *string       `json:"area"`
	PropertyType  *PropertyType `json:"property_type"`
	Urgency       Urgency       `json:"urgency"`
	Tier          Tier          `json:"tier"`
	StatedIntent  *string       `json:"stated_intent,omitempty"`
	Rationale     string        `json:"rationale"`
	IsInterested  bool          `json:"is_interested"`
	InterestLevel InterestLevel `json:"interest_level"`
	IntentScore   float64       `json:"intent_score"`
}
