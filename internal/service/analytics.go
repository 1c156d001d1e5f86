package service

import (
	"sort"
	"strings"
	"sync"

	"leadagent/internal/model"
)

const topAreasLimit = 5

// Analytics aggregates qualification activity since start-up. One instance
// is built in main and shared by every handler.
type Analytics struct {
	mu sync.Mutex

	total         int
	tiers         map[string]int
	urgencies     map[string]int
	propertyTypes map[string]int
	channels      map[string]int
	areas         map[string]int
	areaLabels    map[string]string
	budgetSum     float64
	budgetCount   int
}

// NewAnalytics creates empty counters
func NewAnalytics() *Analytics {
	return &Analytics{
		tiers:         make(map[string]int),
		urgencies:     make(map[string]int),
		propertyTypes: make(map[string]int),
		channels:      make(map[string]int),
		areas:         make(map[string]int),
		areaLabels:    make(map[string]string),
	}
}

// Record counts one qualification event
func (a *Analytics) Record(channel string, r model.QualificationResult) {
	if a == nil {
		return
	}
	channel = NormalizeChannel(channel)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.tiers[string(r.Tier)]++
	a.urgencies[string(r.Urgency)]++
	a.channels[channel]++
	if r.PropertyType != nil {
		a.propertyTypes[string(*r.PropertyType)]++
	}
	if r.Area != nil {
		// areas are counted case-insensitively; the first spelling seen is shown
		key := strings.ToLower(*r.Area)
		if _, ok := a.areaLabels[key]; !ok {
			a.areaLabels[key] = *r.Area
		}
		a.areas[key]++
	}
	if r.Budget != nil {
		a.budgetSum += float64(*r.Budget)
		a.budgetCount++
	}
}

// Summary returns a snapshot of the counters
func (a *Analytics) Summary() model.AnalyticsSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := model.AnalyticsSummary{
		TotalLeads:         a.total,
		TierCounts:         copyCounts(a.tiers),
		UrgencyCounts:      copyCounts(a.urgencies),
		PropertyTypeCounts: copyCounts(a.propertyTypes),
		ChannelCounts:      copyCounts(a.channels),
		TopAreas:           make([]model.TopArea, 0, topAreasLimit),
	}
	if a.budgetCount > 0 {
		avg := int64(a.budgetSum / float64(a.budgetCount))
		s.AverageBudget = &avg
	}

	for key, n := range a.areas {
		s.TopAreas = append(s.TopAreas, model.TopArea{Area: a.areaLabels[key], Count: n})
	}
	sort.Slice(s.TopAreas, func(i, j int) bool {
		if s.TopAreas[i].Count != s.TopAreas[j].Count {
			return s.TopAreas[i].Count > s.TopAreas[j].Count
		}
		return s.TopAreas[i].Area < s.TopAreas[j].Area
	})
	if len(s.TopAreas) > topAreasLimit {
		s.TopAreas = s.TopAreas[:topAreasLimit]
	}
	return s
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
