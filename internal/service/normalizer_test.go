package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadagent/internal/model"
)

func TestNormalizeResponse_MalformedOutput(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I could not understand the request, sorry.",
		"```\nnot json\n```",
		"{budget: 100}",
		"null",
		"[1, 2, 3]",
		"{{{",
		`{"tier": "A"} {"tier": "B"}`,
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			got := NormalizeResponse(raw)

			assert.Equal(t, model.TierC, got.Tier)
			assert.Equal(t, model.UrgencyMedium, got.Urgency)
			assert.Equal(t, RationaleUnparseable, got.Rationale)
			assert.Nil(t, got.Budget)
			assert.Nil(t, got.Area)
			assert.Nil(t, got.PropertyType)
		})
	}
}

func TestNormalizeResponse_Wrappings(t *testing.T) {
	body := `{"budget": 400000000, "area": "Pasto center", "property_type": "apto", "urgency": "Alta", "tier": "a", "rationale": " clear intent "}`

	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain", raw: body},
		{name: "fenced", raw: "```json\n" + body + "\n```"},
		{name: "double braces", raw: "{" + body + "}"},
		{name: "prose around", raw: "Sure! Here it is:\n" + body + "\nLet me know."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeResponse(tt.raw)

			require.NotNil(t, got.Budget)
			assert.Equal(t, int64(400000000), *got.Budget)
			require.NotNil(t, got.Area)
			assert.Equal(t, "Pasto center", *got.Area)
			require.NotNil(t, got.PropertyType)
			assert.Equal(t, model.PropertyApartment, *got.PropertyType)
			assert.Equal(t, model.UrgencyHigh, got.Urgency)
			assert.Equal(t, model.TierA, got.Tier)
			assert.Equal(t, "clear intent", got.Rationale)
		})
	}
}

func TestNormalizePayload_LegacyKeys(t *testing.T) {
	got := NormalizePayload(map[string]interface{}{
		"presupuesto":    "$ 250.000.000",
		"zona":           "Norte",
		"tipo_propiedad": "Casa",
		"urgencia":       "baja",
		"lead_score":     "b",
		"intencion_real": "comprar",
		"razonamiento":   "tiene presupuesto",
	})

	require.NotNil(t, got.Budget)
	assert.Equal(t, int64(250000000), *got.Budget)
	assert.Equal(t, "Norte", *got.Area)
	assert.Equal(t, model.PropertyHouse, *got.PropertyType)
	assert.Equal(t, model.UrgencyLow, got.Urgency)
	assert.Equal(t, model.TierB, got.Tier)
	assert.Equal(t, "comprar", *got.StatedIntent)
	assert.Equal(t, "tiene presupuesto", got.Rationale)
}

func TestNormalizeBudget(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  *int64
	}{
		{name: "nil", input: nil, want: nil},
		{name: "json integer", input: json.Number("400000000"), want: int64Ptr(400000000)},
		{name: "json float truncates", input: json.Number("1234.99"), want: int64Ptr(1234)},
		{name: "float64 truncates", input: 99.9, want: int64Ptr(99)},
		{name: "int", input: 5, want: int64Ptr(5)},
		{name: "negative number", input: -10.0, want: nil},
		{name: "string digits only", input: "COP 1,500,000", want: int64Ptr(1500000)},
		{name: "string without digits", input: "unknown", want: nil},
		{name: "empty string", input: "", want: nil},
		{name: "bool", input: true, want: nil},
		{name: "list", input: []interface{}{1}, want: nil},
		{name: "overflowing digits", input: "99999999999999999999999", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBudget(tt.input))
		})
	}
}

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct {
		input interface{}
		want  *model.PropertyType
	}{
		{input: "Apto", want: ptypePtr(model.PropertyApartment)},
		{input: "departamento", want: ptypePtr(model.PropertyApartment)},
		{input: "TERRENO", want: ptypePtr(model.PropertyLot)},
		{input: "parcela", want: ptypePtr(model.PropertyLot)},
		{input: " casa ", want: ptypePtr(model.PropertyHouse)},
		{input: "house", want: ptypePtr(model.PropertyHouse)},
		{input: "Oficina", want: ptypePtr(model.PropertyOffice)},
		{input: "granja", want: ptypePtr(model.PropertyFarm)},
		{input: "Local Comercial", want: ptypePtr(model.PropertyCommercialUnit)},
		{input: "comercial", want: ptypePtr(model.PropertyCommercialUnit)},
		{input: "castle", want: ptypePtr(model.PropertyOther)},
		{input: "", want: nil},
		{input: nil, want: nil},
		{input: 3, want: nil},
	}

	for _, tt := range tests {
		name, _ := tt.input.(string)
		t.Run("type "+name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePropertyType(tt.input))
		})
	}
}

func TestNormalizeUrgencyAndTier(t *testing.T) {
	assert.Equal(t, model.UrgencyHigh, NormalizeUrgency("ALTA"))
	assert.Equal(t, model.UrgencyHigh, NormalizeUrgency("high"))
	assert.Equal(t, model.UrgencyMedium, NormalizeUrgency("Media"))
	assert.Equal(t, model.UrgencyLow, NormalizeUrgency(" baja "))
	assert.Equal(t, model.UrgencyMedium, NormalizeUrgency("asap"))
	assert.Equal(t, model.UrgencyMedium, NormalizeUrgency(nil))
	assert.Equal(t, model.UrgencyMedium, NormalizeUrgency(1))

	assert.Equal(t, model.TierA, NormalizeTier("a"))
	assert.Equal(t, model.TierB, NormalizeTier(" B "))
	assert.Equal(t, model.TierC, NormalizeTier("D"))
	assert.Equal(t, model.TierC, NormalizeTier("AA"))
	assert.Equal(t, model.TierC, NormalizeTier(nil))
	assert.Equal(t, model.TierC, NormalizeTier(json.Number("1")))
}

func TestNormalizePayload_RationaleNeverEmpty(t *testing.T) {
	for _, v := range []interface{}{nil, "", "   ", 42} {
		got := NormalizePayload(map[string]interface{}{"rationale": v})
		assert.Equal(t, RationaleMissing, got.Rationale)
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

func ptypePtr(v model.PropertyType) *model.PropertyType {
	return &v
}
