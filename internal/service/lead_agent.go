package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadagent/internal/conversation"
	"leadagent/internal/events"
	"leadagent/internal/logger"
	"leadagent/internal/model"
	"leadagent/internal/repository"
)

// DefaultChannel is used when a request names no channel
const DefaultChannel = "web"

// DefaultClassifierTimeout bounds a classifier call when none is configured
const DefaultClassifierTimeout = 30 * time.Second

// emptyMessageText is logged as the inbound interaction of an empty message
const emptyMessageText = "empty message"

// PersistOutcome is the result of the find-or-create step. A nil LeadID
// means nothing was stored; Err says why.
type PersistOutcome struct {
	LeadID  *int64
	Created bool
	Err     error
}

// LogOutcome is the result of one interaction log write
type LogOutcome struct {
	Direction model.Direction
	Err       error
}

// LeadAgentDeps wires a LeadAgent. Classifier, Catalog, Bus and Analytics
// may be nil.
type LeadAgentDeps struct {
	Classifier        Classifier
	Memory            *conversation.Memory
	Leads             repository.LeadStore
	Interactions      repository.InteractionLog
	Catalog           repository.PropertyCatalog
	Bus               events.Bus
	Analytics         *Analytics
	ClassifierTimeout time.Duration
	Log               *logger.Logger
}

// LeadAgent runs the qualification pipeline: memory, classifier,
// normalization, reinforcement, scoring, merge and interaction logging.
type LeadAgent struct {
	classifier   Classifier
	memory       *conversation.Memory
	scorer       *Scorer
	resolver     *IdentityResolver
	leads        repository.LeadStore
	interactions repository.InteractionLog
	catalog      repository.PropertyCatalog
	bus          events.Bus
	analytics    *Analytics
	timeout      time.Duration
	log          *logger.Logger
}

// NewLeadAgent creates a lead agent
func NewLeadAgent(deps LeadAgentDeps) *LeadAgent {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	memory := deps.Memory
	if memory == nil {
		memory = conversation.NewMemory(conversation.DefaultMaxTurns)
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NopBus{}
	}
	timeout := deps.ClassifierTimeout
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}

	return &LeadAgent{
		classifier:   deps.Classifier,
		memory:       memory,
		scorer:       NewScorer(),
		resolver:     NewIdentityResolver(deps.Leads),
		leads:        deps.Leads,
		interactions: deps.Interactions,
		catalog:      deps.Catalog,
		bus:          bus,
		analytics:    deps.Analytics,
		timeout:      timeout,
		log:          log.With("service", "LeadAgent"),
	}
}

// Memory exposes the conversation memory shared with other services
func (a *LeadAgent) Memory() *conversation.Memory {
	return a.memory
}

// Analyze classifies a message without touching the record store. The turn
// pair is appended to the conversation of historyKey.
func (a *LeadAgent) Analyze(ctx context.Context, message, historyKey string) model.QualificationResult {
	message = strings.TrimSpace(message)
	historyKey = conversation.ResolveKey(historyKey)

	result := a.classify(ctx, message, historyKey)
	result.IntentScore = TierBasedScore(result)

	a.remember(historyKey, message, result)
	return result
}

// AnalyzeAndPersist runs the whole pipeline for one inbound message. It
// never fails: store problems leave LeadID nil and are listed in Diagnostics.
func (a *LeadAgent) AnalyzeAndPersist(ctx context.Context, req model.QualifyRequest) model.QualifyResponse {
	message := strings.TrimSpace(req.Message)
	channel := NormalizeChannel(req.Channel)
	historyKey := conversation.ResolveKey(req.SessionID, req.Contact, req.Name)
	var diagnostics []string

	result := a.classify(ctx, message, historyKey)

	catalog, err := a.catalogFor(ctx, req)
	if err != nil {
		// scoring falls back to the tier estimate
		a.log.Warn("catalog unavailable for scoring", "agency_id", req.AgencyID, "error", err)
		diagnostics = append(diagnostics, "catalog unavailable: "+err.Error())
	}
	result.IntentScore = a.score(result, catalog)

	contact := ParseContact(req.Contact)
	persisted := a.persist(ctx, req, contact, result)
	if persisted.Err != nil {
		// the qualification result is still returned without a lead id
		a.log.Error("lead persistence failed", "contact", req.Contact, "error", persisted.Err)
		diagnostics = append(diagnostics, "persistence failed: "+persisted.Err.Error())
	}

	if persisted.LeadID != nil {
		for _, out := range a.recordInteractions(ctx, *persisted.LeadID, channel, message, result) {
			if out.Err != nil {
				// best-effort: a failed log write never fails the request
				a.log.Warn("interaction logging failed", "lead_id", *persisted.LeadID, "direction", out.Direction, "error", out.Err)
				diagnostics = append(diagnostics, fmt.Sprintf("%s interaction not logged: %v", out.Direction, out.Err))
			}
		}
	}

	a.remember(historyKey, message, result)
	a.analytics.Record(channel, result)

	resp := model.QualifyResponse{
		LeadID:              persisted.LeadID,
		Created:             persisted.Created,
		QualificationResult: result,
		Diagnostics:         diagnostics,
	}
	a.publish(ctx, events.QualificationEvent{
		Type:        events.TypeLeadQualified,
		LeadID:      resp.LeadID,
		AgencyID:    req.AgencyID,
		Channel:     channel,
		Created:     resp.Created,
		Result:      result,
		Diagnostics: diagnostics,
	})

	a.log.Info("lead qualified",
		"lead_id", resp.LeadID,
		"created", resp.Created,
		"tier", result.Tier,
		"intent_score", result.IntentScore,
		"channel", channel,
	)
	return resp
}

// classify builds the prompt from memory, calls the classifier outside any
// lock, and normalizes and reinforces whatever comes back
func (a *LeadAgent) classify(ctx context.Context, message, historyKey string) model.QualificationResult {
	var payload map[string]interface{}

	switch {
	case message == "":
		payload = FallbackPayload()
		payload["rationale"] = RationaleEmptyMessage
	case a.classifier == nil:
		payload = FallbackPayload()
		payload["rationale"] = RationaleUnavailable
	default:
		prompt := BuildQualificationPrompt(a.memory.Render(historyKey), message)

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		raw, err := a.classifier.Invoke(callCtx, prompt)
		cancel()

		if err != nil {
			// no retry: a failed call degrades to the fallback payload
			a.log.Warn("classifier call failed", "history_key", historyKey, "error", err)
			payload = FallbackPayload()
			payload["rationale"] = RationaleUnavailable
		} else {
			payload = ParseClassifierOutput(raw)
		}
	}

	result := NormalizePayload(payload)
	Reinforce(&result)
	return result
}

// catalogFor returns the request snapshot, or the agency catalog when the
// request carries none
func (a *LeadAgent) catalogFor(ctx context.Context, req model.QualifyRequest) ([]model.Property, error) {
	if req.Catalog != nil {
		return req.Catalog, nil
	}
	if a.catalog == nil || req.AgencyID == nil {
		return nil, nil
	}
	return a.catalog.ListProperties(ctx, req.AgencyID)
}

// score uses the catalog calculator when there is something to match
// against, otherwise the tier estimate
func (a *LeadAgent) score(r model.QualificationResult, catalog []model.Property) float64 {
	if len(catalog) == 0 {
		return TierBasedScore(r)
	}
	score, _ := a.scorer.CalculateIntentScore(r.Area, budgetAsFloat(r.Budget), r.Urgency, catalog)
	return score
}

// persist finds or creates the lead and merges the event into it
func (a *LeadAgent) persist(ctx context.Context, req model.QualifyRequest, contact Contact, r model.QualificationResult) PersistOutcome {
	if a.leads == nil {
		return PersistOutcome{Err: fmt.Errorf("no lead store configured")}
	}

	existing, err := a.resolver.Find(ctx, req.UserID, contact, req.AgencyID)
	if err != nil {
		return PersistOutcome{Err: err}
	}

	patch := BuildLeadPatch(MergeInput{
		Result:     r,
		Contact:    contact,
		RawName:    req.Name,
		RawContact: req.Contact,
		UserID:     req.UserID,
		AgencyID:   req.AgencyID,
		PostID:     req.PostID,
	}, existing)

	if existing != nil {
		lead, err := a.leads.Update(ctx, existing.ID, patch)
		if err != nil {
			return PersistOutcome{Err: fmt.Errorf("failed to update lead %d: %w", existing.ID, err)}
		}
		return PersistOutcome{LeadID: &lead.ID}
	}

	lead, err := a.leads.Insert(ctx, model.NewLead(patch))
	if err != nil {
		return PersistOutcome{Err: fmt.Errorf("failed to create lead: %w", err)}
	}
	return PersistOutcome{LeadID: &lead.ID, Created: true}
}

// recordInteractions logs the raw inbound message and the outbound summary
func (a *LeadAgent) recordInteractions(ctx context.Context, leadID int64, channel, message string, r model.QualificationResult) []LogOutcome {
	if a.interactions == nil {
		return nil
	}
	if message == "" {
		message = emptyMessageText
	}

	entries := []model.Interaction{
		{LeadID: leadID, Channel: channel, Direction: model.DirectionInbound, Message: message},
		{LeadID: leadID, Channel: channel, Direction: model.DirectionOutbound, Message: AgentSummary(r)},
	}

	outcomes := make([]LogOutcome, 0, len(entries))
	for _, it := range entries {
		_, err := a.interactions.Append(ctx, it)
		outcomes = append(outcomes, LogOutcome{Direction: it.Direction, Err: err})
	}
	return outcomes
}

// remember appends the user message and the agent summary to memory
func (a *LeadAgent) remember(historyKey, message string, r model.QualificationResult) {
	if historyKey == "" {
		return
	}
	a.memory.Append(historyKey, conversation.RoleUser, message)
	a.memory.Append(historyKey, conversation.RoleAgent, AgentSummary(r))
}

// publish emits the event; a failure is logged and otherwise ignored
func (a *LeadAgent) publish(ctx context.Context, ev events.QualificationEvent) {
	ev.OccurredAt = time.Now().UTC()
	if err := a.bus.Publish(ctx, ev); err != nil {
		a.log.Warn("event publish failed", "type", ev.Type, "error", err)
	}
}

// NormalizeChannel lower-cases the channel, defaulting to web
func NormalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return DefaultChannel
	}
	return channel
}
