package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"leadagent/internal/model"
	"leadagent/internal/utils"
)

// Rationale placeholders
const (
	RationaleMissing      = "no rationale provided"
	RationaleUnparseable  = "could not interpret the message"
	RationaleUnavailable  = "classifier unavailable, message could not be analyzed"
	RationaleEmptyMessage = "empty message"
)

// payload keys, with the legacy Spanish keys some prompts still produce
var (
	keysBudget       = []string{"budget", "presupuesto"}
	keysArea         = []string{"area", "zona"}
	keysPropertyType = []string{"property_type", "tipo_propiedad"}
	keysUrgency      = []string{"urgency", "urgencia"}
	keysTier         = []string{"tier", "lead_score"}
	keysStatedIntent = []string{"stated_intent", "intencion_real"}
	keysRationale    = []string{"rationale", "razonamiento"}
)

var propertyTypeSynonyms = map[string]model.PropertyType{
	"apartamento":     model.PropertyApartment,
	"apto":            model.PropertyApartment,
	"departamento":    model.PropertyApartment,
	"dept":            model.PropertyApartment,
	"dept.":           model.PropertyApartment,
	"apartment":       model.PropertyApartment,
	"casa":            model.PropertyHouse,
	"house":           model.PropertyHouse,
	"local":           model.PropertyCommercialUnit,
	"local comercial": model.PropertyCommercialUnit,
	"comercial":       model.PropertyCommercialUnit,
	"commercial":      model.PropertyCommercialUnit,
	"commercial_unit": model.PropertyCommercialUnit,
	"lote":            model.PropertyLot,
	"terreno":         model.PropertyLot,
	"parcela":         model.PropertyLot,
	"lot":             model.PropertyLot,
	"oficina":         model.PropertyOffice,
	"office":          model.PropertyOffice,
	"finca":           model.PropertyFarm,
	"granja":          model.PropertyFarm,
	"farm":            model.PropertyFarm,
	"otro":            model.PropertyOther,
	"otros":           model.PropertyOther,
	"other":           model.PropertyOther,
}

var urgencyLabels = map[string]model.Urgency{
	"alta":   model.UrgencyHigh,
	"high":   model.UrgencyHigh,
	"media":  model.UrgencyMedium,
	"medium": model.UrgencyMedium,
	"baja":   model.UrgencyLow,
	"low":    model.UrgencyLow,
}

// FallbackPayload is the payload used when the classifier output holds no
// usable JSON object
func FallbackPayload() map[string]interface{} {
	return map[string]interface{}{
		"budget":        nil,
		"area":          nil,
		"property_type": nil,
		"urgency":       string(model.UrgencyMedium),
		"tier":          string(model.TierC),
		"rationale":     RationaleUnparseable,
	}
}

// ParseClassifierOutput salvages the JSON object from raw classifier text.
// It never fails: unusable text yields FallbackPayload.
func ParseClassifierOutput(raw string) map[string]interface{} {
	obj, err := utils.ParseAIObject(raw)
	if err != nil {
		return FallbackPayload()
	}
	return obj
}

// NormalizePayload sanitizes a loosely-typed payload into a strict result.
// Interest fields and the intent score are left for later stages.
func NormalizePayload(payload map[string]interface{}) model.QualificationResult {
	return model.QualificationResult{
		Budget:        NormalizeBudget(lookup(payload, keysBudget)),
		Area:          NormalizeText(lookup(payload, keysArea)),
		PropertyType:  NormalizePropertyType(lookup(payload, keysPropertyType)),
		Urgency:       NormalizeUrgency(lookup(payload, keysUrgency)),
		Tier:          NormalizeTier(lookup(payload, keysTier)),
		StatedIntent:  NormalizeText(lookup(payload, keysStatedIntent)),
		Rationale:     normalizeRationale(lookup(payload, keysRationale)),
		InterestLevel: model.InterestLow,
	}
}

// NormalizeResponse is ParseClassifierOutput followed by NormalizePayload
func NormalizeResponse(raw string) model.QualificationResult {
	return NormalizePayload(ParseClassifierOutput(raw))
}

// lookup returns the first non-nil value among keys
func lookup(payload map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// NormalizeBudget truncates numbers and keeps only the digits of strings.
// Anything else, and negative numbers, is absent.
func NormalizeBudget(v interface{}) *int64 {
	switch b := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := b.Int64(); err == nil {
			return nonNegative(i)
		}
		f, err := b.Float64()
		if err != nil {
			return nil
		}
		return truncateFloat(f)
	case float64:
		return truncateFloat(b)
	case float32:
		return truncateFloat(float64(b))
	case int:
		return nonNegative(int64(b))
	case int64:
		return nonNegative(b)
	case int32:
		return nonNegative(int64(b))
	case string:
		var digits strings.Builder
		for _, r := range b {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if digits.Len() == 0 {
			return nil
		}
		i, err := strconv.ParseInt(digits.String(), 10, 64)
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}

func truncateFloat(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 {
		return nil
	}
	return nonNegative(int64(f))
}

func nonNegative(i int64) *int64 {
	if i < 0 {
		return nil
	}
	return &i
}

// NormalizeText returns a trimmed non-empty string, or nil
func NormalizeText(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NormalizePropertyType maps synonyms case-insensitively; unknown text maps to other
func NormalizePropertyType(v interface{}) *model.PropertyType {
	s := NormalizeText(v)
	if s == nil {
		return nil
	}
	pt, ok := propertyTypeSynonyms[strings.ToLower(*s)]
	if !ok {
		pt = model.PropertyOther
	}
	return &pt
}

// NormalizeUrgency maps localized labels, defaulting to medium
func NormalizeUrgency(v interface{}) model.Urgency {
	s, ok := v.(string)
	if !ok {
		return model.UrgencyMedium
	}
	if u, ok := urgencyLabels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u
	}
	return model.UrgencyMedium
}

// NormalizeTier uppercases and validates the tier, defaulting to C
func NormalizeTier(v interface{}) model.Tier {
	s, ok := v.(string)
	if !ok {
		return model.TierC
	}
	t := model.Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return model.TierC
	}
	return t
}

func normalizeRationale(v interface{}) string {
	if s := NormalizeText(v); s != nil {
		return *s
	}
	return RationaleMissing
}
