package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadagent/internal/model"
)

func TestAnalytics_Summary(t *testing.T) {
	a := NewAnalytics()

	a.Record("WhatsApp", model.QualificationResult{
		Tier: model.TierA, Urgency: model.UrgencyHigh,
		Area: stringPtr("Pasto"), Budget: int64Ptr(300), PropertyType: ptypePtr(model.PropertyHouse),
	})
	a.Record("", model.QualificationResult{
		Tier: model.TierB, Urgency: model.UrgencyMedium,
		Area: stringPtr("pasto"), Budget: int64Ptr(100),
	})
	a.Record("web", model.QualificationResult{Tier: model.TierC, Urgency: model.UrgencyLow})

	s := a.Summary()
	assert.Equal(t, 3, s.TotalLeads)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, s.TierCounts)
	assert.Equal(t, map[string]int{"high": 1, "medium": 1, "low": 1}, s.UrgencyCounts)
	assert.Equal(t, map[string]int{"whatsapp": 1, "web": 2}, s.ChannelCounts)
	assert.Equal(t, map[string]int{"house": 1}, s.PropertyTypeCounts)
	require.NotNil(t, s.AverageBudget)
	assert.Equal(t, int64(200), *s.AverageBudget)
	assert.Equal(t, []model.TopArea{{Area: "Pasto", Count: 2}}, s.TopAreas)
}

func TestAnalytics_EmptySummary(t *testing.T) {
	s := NewAnalytics().Summary()
	assert.Zero(t, s.TotalLeads)
	assert.Nil(t, s.AverageBudget)
	assert.NotNil(t, s.TopAreas)
	assert.Empty(t, s.TopAreas)
}

func TestAnalytics_TopAreasLimitAndOrder(t *testing.T) {
	a := NewAnalytics()
	counts := map[string]int{"F": 1, "E": 2, "D": 2, "C": 3, "B": 4, "A": 5, "G": 1}
	for area, n := range counts {
		for i := 0; i < n; i++ {
			a.Record("web", model.QualificationResult{Tier: model.TierC, Area: stringPtr(area)})
		}
	}

	got := a.Summary().TopAreas
	assert.Equal(t, []model.TopArea{
		{Area: "A", Count: 5},
		{Area: "B", Count: 4},
		{Area: "C", Count: 3},
		{Area: "D", Count: 2},
		{Area: "E", Count: 2},
	}, got)
}

func TestAnalytics_ConcurrentRecord(t *testing.T) {
	a := NewAnalytics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Record(fmt.Sprintf("ch%d", i%3), model.QualificationResult{Tier: model.TierB})
		}(i)
	}
	wg.Wait()

	s := a.Summary()
	assert.Equal(t, 50, s.TotalLeads)
	assert.Equal(t, 50, s.TierCounts["B"])
}

func TestAnalytics_NilIsSafe(t *testing.T) {
	var a *Analytics
	assert.NotPanics(t, func() {
		a.Record("web", model.QualificationResult{Tier: model.TierA})
	})
}
