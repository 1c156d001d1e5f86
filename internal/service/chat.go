package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"leadagent/internal/events"
	"leadagent/internal/logger"
	"leadagent/internal/model"
	"leadagent/internal/repository"
)

const preferencesSavedMessage = "Preferences saved"

// ChatServiceDeps wires a ChatService. Catalog and Bus may be nil.
type ChatServiceDeps struct {
	Leads        repository.LeadStore
	Interactions repository.InteractionLog
	Catalog      repository.PropertyCatalog
	Bus          events.Bus
	Log          *logger.Logger
}

// ChatService stores the step-by-step preferences collected by the web
// chatbot and keeps the lead record in sync with them
type ChatService struct {
	leads        repository.LeadStore
	interactions repository.InteractionLog
	catalog      repository.PropertyCatalog
	resolver     *IdentityResolver
	scorer       *Scorer
	bus          events.Bus
	log          *logger.Logger
}

// NewChatService creates a chat service
func NewChatService(deps ChatServiceDeps) *ChatService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NopBus{}
	}
	return &ChatService{
		leads:        deps.Leads,
		interactions: deps.Interactions,
		catalog:      deps.Catalog,
		resolver:     NewIdentityResolver(deps.Leads),
		scorer:       NewScorer(),
		bus:          bus,
		log:          log.With("service", "ChatService"),
	}
}

// SavePreferences merges the supplied preferences into the lead identified
// by the request, creating it when needed. The tier is derived from the
// catalog score, not from a classifier.
func (s *ChatService) SavePreferences(ctx context.Context, req model.ChatPreferenceRequest) (*model.ChatPreferenceResponse, error) {
	contact := ParseContact(req.Contact)
	agencyID := req.AgencyID

	var property *model.Property
	if req.PropertyID != nil && s.catalog != nil {
		p, err := s.catalog.GetProperty(ctx, *req.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load property %d: %w", *req.PropertyID, err)
		}
		property = p
		if agencyID == nil && p != nil {
			agencyID = p.AgencyID
		}
	}

	var (
		existing *model.Lead
		catalog  []model.Property
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lead, err := s.resolver.Find(gctx, req.UserID, contact, agencyID)
		if err != nil {
			return err
		}
		existing = lead
		return nil
	})
	g.Go(func() error {
		if s.catalog == nil || agencyID == nil {
			return nil
		}
		props, err := s.catalog.ListProperties(gctx, agencyID)
		if err != nil {
			// score against an empty catalog
			s.log.Warn("catalog unavailable for scoring", "agency_id", *agencyID, "error", err)
			return nil
		}
		catalog = props
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	area := preferenceArea(req.Area, existing, property)
	budget := preferenceBudget(req.Budget, existing, property)
	urgency := preferenceUrgency(req.Urgency, existing)

	prefs := model.ChatPreferences{
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		Garage:     req.Garage,
		PropertyID: req.PropertyID,
	}
	if req.PropertyType != nil {
		prefs.PropertyType = NormalizePropertyType(*req.PropertyType)
	}
	if property != nil {
		prefs.PropertyTitle = property.Title
	}

	var existingNotes *string
	status := model.LeadStatusNew
	if existing != nil {
		existingNotes = existing.Notes
		if existing.Status != "" {
			status = existing.Status
		}
	}
	notes, err := MergePreferenceNotes(existingNotes, prefs)
	if err != nil {
		return nil, err
	}

	score, tier := s.scorer.CalculateIntentScore(area, budgetAsFloat(budget), urgency, catalog)
	name := ChooseName(req.Name, existing, req.Contact)

	patch := model.LeadPatch{
		AgencyID:      agencyID,
		UserID:        req.UserID,
		FullName:      &name,
		Email:         contact.Email,
		Phone:         contact.Phone,
		PreferredArea: area,
		Budget:        budget,
		Urgency:       &urgency,
		Tier:          &tier,
		IntentScore:   &score,
		Notes:         &notes,
		Status:        &status,
	}

	var lead *model.Lead
	if existing != nil {
		lead, err = s.leads.Update(ctx, existing.ID, patch)
	} else {
		lead, err = s.leads.Insert(ctx, model.NewLead(patch))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save lead preferences: %w", err)
	}

	channel := NormalizeChannel(req.Channel)
	s.logInbound(ctx, lead.ID, channel, req.Message)

	interested, level := InterestFromTier(tier)
	resp := &model.ChatPreferenceResponse{
		LeadID:        &lead.ID,
		Tier:          tier,
		IntentScore:   score,
		IsInterested:  interested,
		InterestLevel: level,
		Preferences:   StoredPreferences(notes),
		Saved:         true,
		Message:       preferencesSavedMessage,
	}

	ev := events.QualificationEvent{
		Type:     events.TypePreferenceSaved,
		LeadID:   resp.LeadID,
		AgencyID: agencyID,
		Channel:  channel,
		Created:  existing == nil,
		Result: model.QualificationResult{
			Budget:        budget,
			Area:          area,
			PropertyType:  prefs.PropertyType,
			Urgency:       urgency,
			Tier:          tier,
			Rationale:     preferencesSavedMessage,
			IsInterested:  interested,
			InterestLevel: level,
			IntentScore:   score,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", "type", ev.Type, "error", err)
	}

	s.log.Info("chat preferences saved", "lead_id", lead.ID, "tier", tier, "intent_score", score)
	return resp, nil
}

// logInbound records the chatbot message; failures are logged and ignored
func (s *ChatService) logInbound(ctx context.Context, leadID int64, channel, message string) {
	if s.interactions == nil {
		return
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = emptyMessageText
	}
	_, err := s.interactions.Append(ctx, model.Interaction{
		LeadID:    leadID,
		Channel:   channel,
		Direction: model.DirectionInbound,
		Message:   message,
	})
	if err != nil {
		s.log.Warn("interaction logging failed", "lead_id", leadID, "error", err)
	}
}

func preferenceArea(requested *string, existing *model.Lead, property *model.Property) *string {
	if requested != nil {
		if a := NormalizeText(*requested); a != nil {
			return a
		}
	}
	if existing != nil && existing.PreferredArea != nil {
		return existing.PreferredArea
	}
	if property != nil {
		return NormalizeText(property.Area)
	}
	return nil
}

func preferenceBudget(requested *float64, existing *model.Lead, property *model.Property) *int64 {
	if requested != nil {
		if b := NormalizeBudget(*requested); b != nil && *b > 0 {
			return b
		}
	}
	if existing != nil && existing.Budget != nil {
		return existing.Budget
	}
	if property != nil && property.Price > 0 {
		price := int64(math.Trunc(property.Price))
		return &price
	}
	return nil
}

func preferenceUrgency(requested *string, existing *model.Lead) model.Urgency {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		return NormalizeUrgency(*requested)
	}
	if existing != nil && existing.Urgency.Valid() {
		return existing.Urgency
	}
	return model.UrgencyMedium
}

// MergePreferenceNotes stores prefs under "preferences" in the JSON notes
// document. Notes that are not a JSON object are kept under "raw". Only the
// preferences present in prefs replace stored ones.
func MergePreferenceNotes(existing *string, prefs model.ChatPreferences) (string, error) {
	doc := map[string]interface{}{}
	if existing != nil && strings.TrimSpace(*existing) != "" {
		if err := json.Unmarshal([]byte(*existing), &doc); err != nil || doc == nil {
			doc = map[string]interface{}{"raw": *existing}
		}
	}

	stored, _ := doc["preferences"].(map[string]interface{})
	if stored == nil {
		stored = map[string]interface{}{}
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("failed to encode preferences: %w", err)
	}
	var supplied map[string]interface{}
	if err := json.Unmarshal(raw, &supplied); err != nil {
		return "", fmt.Errorf("failed to encode preferences: %w", err)
	}
	for k, v := range supplied {
		stored[k] = v
	}
	doc["preferences"] = stored

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode notes: %w", err)
	}
	return string(out), nil
}

// StoredPreferences decodes the merged preference set kept in lead notes.
// Notes without a preferences object yield an empty set.
func StoredPreferences(notes string) model.ChatPreferences {
	var doc struct {
		Preferences model.ChatPreferences `json:"preferences"`
	}
	if err := json.Unmarshal([]byte(notes), &doc); err != nil {
		return model.ChatPreferences{}
	}
	return doc.Preferences
}
