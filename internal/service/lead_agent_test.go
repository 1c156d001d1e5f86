package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadagent/internal/conversation"
	"leadagent/internal/events"
	"leadagent/internal/model"
	"leadagent/internal/repository"
)

const (
	pastoReply = `{"budget": 300000000, "area": "Pasto", "property_type": "casa", "urgency": "alta",
		"tier": "A", "stated_intent": "buy a house", "rationale": "clear budget and area, buying now"}`
	browsingReply = "```json\n" + `{"budget": null, "area": null, "property_type": null, "urgency": "baja",
		"tier": "C", "rationale": "just browsing"}` + "\n```"
	followUpReply = `{"budget": 300000000, "area": "Pasto", "property_type": "casa", "urgency": "media",
		"tier": "B", "rationale": "asked about financing"}`
)

// scriptedClassifier returns canned replies in order and records every prompt
type scriptedClassifier struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (c *scriptedClassifier) Invoke(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return reply, nil
}

func (c *scriptedClassifier) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// brokenStore fails every lead operation
type brokenStore struct {
	repository.LeadStore
}

func (brokenStore) FindOne(context.Context, repository.LeadFilter) (*model.Lead, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Insert(context.Context, model.Lead) (*model.Lead, error) {
	return nil, errors.New("connection refused")
}

type agentFixture struct {
	agent      *LeadAgent
	store      *repository.MemoryStore
	bus        *events.MemoryBus
	analytics  *Analytics
	classifier *scriptedClassifier
}

func newAgentFixture(t *testing.T, c *scriptedClassifier, catalog []model.Property) agentFixture {
	t.Helper()
	store := repository.NewMemoryStore(catalog)
	bus := &events.MemoryBus{}
	analytics := NewAnalytics()

	deps := LeadAgentDeps{
		Memory:       conversation.NewMemory(10),
		Leads:        store,
		Interactions: store,
		Catalog:      store,
		Bus:          bus,
		Analytics:    analytics,
	}
	if c != nil {
		deps.Classifier = c
	}
	return agentFixture{
		agent:      NewLeadAgent(deps),
		store:      store,
		bus:        bus,
		analytics:  analytics,
		classifier: c,
	}
}

func TestLeadAgent_AnalyzeAndPersist_HotLead(t *testing.T) {
	ctx := context.Background()
	f := newAgentFixture(t, &scriptedClassifier{replies: []string{pastoReply}}, nil)

	resp := f.agent.AnalyzeAndPersist(ctx, model.QualifyRequest{
		Message: "I want to buy a house in Pasto for 300 million, I'm buying now",
		Channel: "WhatsApp",
		Contact: "+57 300 123 4567",
		Name:    "Laura",
	})

	require.NotNil(t, resp.LeadID)
	assert.True(t, resp.Created)
	assert.Empty(t, resp.Diagnostics)
	assert.Equal(t, model.TierA, resp.Tier)
	assert.True(t, resp.IsInterested)
	assert.Equal(t, model.InterestHigh, resp.InterestLevel)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, int64(300000000), *resp.Budget)
	require.NotNil(t, resp.PropertyType)
	assert.Equal(t, model.PropertyHouse, *resp.PropertyType)
	assert.Equal(t, model.UrgencyHigh, resp.Urgency)

	lead, err := f.store.Get(ctx, *resp.LeadID, nil)
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "Laura", lead.FullName)
	require.NotNil(t, lead.Phone)
	assert.Equal(t, "+573001234567", *lead.Phone)
	assert.Equal(t, model.TierA, lead.Tier)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	require.NotNil(t, lead.Notes)
	assert.Contains(t, *lead.Notes, "Agent -> tier A")

	interactions, err := f.store.ListByLead(ctx, *resp.LeadID)
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	directions := []model.Direction{interactions[0].Direction, interactions[1].Direction}
	assert.ElementsMatch(t, []model.Direction{model.DirectionInbound, model.DirectionOutbound}, directions)
	for _, it := range interactions {
		assert.Equal(t, "whatsapp", it.Channel)
	}

	evs := f.bus.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeLeadQualified, evs[0].Type)
	assert.Equal(t, resp.LeadID, evs[0].LeadID)
	assert.False(t, evs[0].OccurredAt.IsZero())

	summary := f.analytics.Summary()
	assert.Equal(t, 1, summary.TotalLeads)
	assert.Equal(t, 1, summary.ChannelCounts["whatsapp"])
}

func TestLeadAgent_AnalyzeAndPersist_Browsing(t *testing.T) {
	f := newAgentFixture(t, &scriptedClassifier{replies: []string{browsingReply}}, nil)

	resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
		Message: "just looking, thanks",
		Contact: "someone@example.com",
	})

	require.NotNil(t, resp.LeadID)
	assert.Equal(t, model.TierC, resp.Tier)
	assert.False(t, resp.IsInterested)
	assert.Equal(t, model.InterestLow, resp.InterestLevel)
	assert.Nil(t, resp.Budget)
	assert.Nil(t, resp.Area)
	assert.Equal(t, "just browsing", resp.Rationale)
}

func TestLeadAgent_AnalyzeAndPersist_RepeatedContactMerges(t *testing.T) {
	ctx := context.Background()
	f := newAgentFixture(t, &scriptedClassifier{replies: []string{pastoReply, followUpReply}}, nil)

	first := f.agent.AnalyzeAndPersist(ctx, model.QualifyRequest{
		Message: "house in Pasto for 300 million, buying now",
		Contact: "300-123-4567",
		Name:    "Laura",
	})
	second := f.agent.AnalyzeAndPersist(ctx, model.QualifyRequest{
		Message: "what financing options are there?",
		Contact: "300 123 4567",
	})

	require.NotNil(t, first.LeadID)
	require.NotNil(t, second.LeadID)
	assert.Equal(t, *first.LeadID, *second.LeadID)
	assert.True(t, first.Created)
	assert.False(t, second.Created)

	leads, err := f.store.List(ctx, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	lead := leads[0]
	assert.Equal(t, "Laura", lead.FullName)
	require.NotNil(t, lead.Notes)
	assert.Contains(t, *lead.Notes, "clear budget and area, buying now")
	assert.Contains(t, *lead.Notes, "asked about financing")

	interactions, err := f.store.ListByLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, interactions, 4)
}

func TestLeadAgent_AnalyzeAndPersist_ClassifierFailures(t *testing.T) {
	tests := []struct {
		name          string
		classifier    *scriptedClassifier
		wantRationale string
	}{
		{
			name:          "classifier error",
			classifier:    &scriptedClassifier{err: errors.New("503 service unavailable")},
			wantRationale: RationaleUnavailable,
		},
		{
			name:          "malformed output",
			classifier:    &scriptedClassifier{replies: []string{"Sorry, I cannot help with that."}},
			wantRationale: RationaleUnparseable,
		},
		{
			name:          "no classifier",
			wantRationale: RationaleUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAgentFixture(t, tt.classifier, nil)

			resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
				Message: "hello",
				Contact: "+573001112233",
			})

			assert.Equal(t, model.TierC, resp.Tier)
			assert.Equal(t, model.UrgencyMedium, resp.Urgency)
			assert.Equal(t, tt.wantRationale, resp.Rationale)
			assert.False(t, resp.IsInterested)
			assert.NotNil(t, resp.LeadID, "lead is stored even when the classifier fails")
		})
	}
}

func TestLeadAgent_ClassifierTimeout(t *testing.T) {
	slow := ClassifierFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	agent := NewLeadAgent(LeadAgentDeps{
		Classifier:        slow,
		ClassifierTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	result := agent.Analyze(context.Background(), "house in Pasto", "session-1")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, model.TierC, result.Tier)
	assert.Equal(t, RationaleUnavailable, result.Rationale)
}

func TestLeadAgent_EmptyMessageSkipsClassifier(t *testing.T) {
	c := &scriptedClassifier{replies: []string{pastoReply}}
	f := newAgentFixture(t, c, nil)

	resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
		Message: "   ",
		Contact: "+573001112233",
	})

	assert.Empty(t, c.Prompts())
	assert.Equal(t, model.TierC, resp.Tier)
	assert.Equal(t, RationaleEmptyMessage, resp.Rationale)

	require.NotNil(t, resp.LeadID)
	interactions, err := f.store.ListByLead(context.Background(), *resp.LeadID)
	require.NoError(t, err)
	var inbound []string
	for _, it := range interactions {
		if it.Direction == model.DirectionInbound {
			inbound = append(inbound, it.Message)
		}
	}
	assert.Equal(t, []string{emptyMessageText}, inbound)
}

func TestLeadAgent_StoreFailureStillReturnsResult(t *testing.T) {
	agent := NewLeadAgent(LeadAgentDeps{
		Classifier: &scriptedClassifier{replies: []string{pastoReply}},
		Leads:      brokenStore{},
	})

	resp := agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
		Message: "house in Pasto for 300 million, buying now",
		Contact: "+573001234567",
	})

	assert.Nil(t, resp.LeadID)
	assert.False(t, resp.Created)
	assert.Equal(t, model.TierA, resp.Tier)
	require.Len(t, resp.Diagnostics, 1)
	assert.True(t, strings.HasPrefix(resp.Diagnostics[0], "persistence failed"))
}

func TestLeadAgent_MemoryFeedsNextPrompt(t *testing.T) {
	c := &scriptedClassifier{replies: []string{pastoReply, followUpReply}}
	f := newAgentFixture(t, c, nil)
	ctx := context.Background()

	f.agent.AnalyzeAndPersist(ctx, model.QualifyRequest{Message: "house in Pasto", SessionID: "s-42"})
	f.agent.AnalyzeAndPersist(ctx, model.QualifyRequest{Message: "any financing?", SessionID: "s-42"})

	prompts := c.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], conversation.NoContext)
	assert.Contains(t, prompts[1], "User: house in Pasto")
	assert.Contains(t, prompts[1], "Agent: Detected -> budget: 300000000, area: Pasto")

	turns := f.agent.Memory().Get("s-42")
	require.Len(t, turns, 4)
	assert.Equal(t, conversation.RoleUser, turns[2].Role)
	assert.Equal(t, "any financing?", turns[2].Content)
	assert.Equal(t, conversation.RoleAgent, turns[3].Role)
}

func TestLeadAgent_ScoresAgainstCatalog(t *testing.T) {
	agency := int64(3)
	catalog := []model.Property{
		{ID: 1, AgencyID: &agency, Area: "Pasto Centro", Price: 310000000},
		{ID: 2, AgencyID: &agency, Area: "Ipiales", Price: 90000000},
	}

	t.Run("agency catalog", func(t *testing.T) {
		f := newAgentFixture(t, &scriptedClassifier{replies: []string{pastoReply}}, catalog)
		resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
			Message:  "house in Pasto for 300 million, buying now",
			AgencyID: &agency,
		})
		// high urgency 40 + area 15 + budget 25 + both 10
		assert.Equal(t, 90.0, resp.IntentScore)
	})

	t.Run("request snapshot wins", func(t *testing.T) {
		f := newAgentFixture(t, &scriptedClassifier{replies: []string{pastoReply}}, catalog)
		resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
			Message:  "house in Pasto for 300 million, buying now",
			AgencyID: &agency,
			Catalog:  []model.Property{{ID: 9, Area: "Ipiales", Price: 90000000}},
		})
		// high urgency 40, budget unmatched -5
		assert.Equal(t, 35.0, resp.IntentScore)
	})

	t.Run("no catalog uses tier estimate", func(t *testing.T) {
		f := newAgentFixture(t, &scriptedClassifier{replies: []string{pastoReply}}, nil)
		resp := f.agent.AnalyzeAndPersist(context.Background(), model.QualifyRequest{
			Message: "house in Pasto for 300 million, buying now",
		})
		assert.Equal(t, TierBasedScore(resp.QualificationResult), resp.IntentScore)
		assert.Equal(t, 100.0, resp.IntentScore)
	})
}

func TestNormalizeChannel(t *testing.T) {
	assert.Equal(t, "web", NormalizeChannel(""))
	assert.Equal(t, "web", NormalizeChannel("  "))
	assert.Equal(t, "telegram", NormalizeChannel(" Telegram "))
}
