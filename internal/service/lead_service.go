package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadagent/internal/logger"
	"leadagent/internal/model"
	"leadagent/internal/repository"
)

// ErrInvalidInput marks a request the service refuses to apply
var ErrInvalidInput = errors.New("invalid input")

// LeadService manages lead records from the back office
type LeadService struct {
	leads        repository.LeadStore
	interactions repository.InteractionLog
	catalog      repository.PropertyCatalog
	scorer       *Scorer
	log          *logger.Logger
}

// NewLeadService creates a lead service over a store
func NewLeadService(store repository.Store, log *logger.Logger) *LeadService {
	if log == nil {
		log = logger.Nop()
	}
	return &LeadService{
		leads:        store,
		interactions: store,
		catalog:      store,
		scorer:       NewScorer(),
		log:          log.With("service", "LeadService"),
	}
}

// List returns the leads of an agency, or every lead when agencyID is nil
func (s *LeadService) List(ctx context.Context, agencyID *int64, limit, offset int) ([]model.Lead, error) {
	leads, err := s.leads.List(ctx, repository.ListFilter{AgencyID: agencyID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	return leads, nil
}

// Get returns a lead with its interactions, newest first. It returns nil
// when the lead does not exist in the given scope.
func (s *LeadService) Get(ctx context.Context, id int64, agencyID *int64) (*model.LeadWithInteractions, error) {
	lead, err := s.leads.Get(ctx, id, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if lead == nil {
		return nil, nil
	}

	interactions, err := s.interactions.ListByLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	if interactions == nil {
		interactions = []model.Interaction{}
	}
	return &model.LeadWithInteractions{Lead: *lead, Interactions: interactions}, nil
}

// Create stores a manually entered lead with a freshly computed score
func (s *LeadService) Create(ctx context.Context, req model.LeadCreateRequest) (*model.Lead, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}

	if req.Budget != nil && *req.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", ErrInvalidInput)
	}

	urgency := model.UrgencyMedium
	if req.Urgency != nil {
		urgency = NormalizeUrgency(string(*req.Urgency))
	}
	agencyID := req.AgencyID
	status := model.LeadStatusNew

	lead := model.NewLead(model.LeadPatch{
		AgencyID:      &agencyID,
		PostID:        req.PostID,
		FullName:      &name,
		Email:         NormalizeText(derefString(req.Email)),
		Phone:         NormalizeText(derefString(req.Phone)),
		PreferredArea: NormalizeText(derefString(req.PreferredArea)),
		Budget:        req.Budget,
		Urgency:       &urgency,
		Notes:         req.Notes,
		Status:        &status,
	})

	if err := s.rescore(ctx, &lead); err != nil {
		return nil, err
	}

	created, err := s.leads.Insert(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	s.log.Info("lead created", "lead_id", created.ID, "agency_id", agencyID, "tier", created.Tier)
	return created, nil
}

// Update applies a partial update. The score and tier are recomputed when
// the area, budget or urgency change.
func (s *LeadService) Update(ctx context.Context, id int64, agencyID *int64, req model.LeadUpdateRequest) (*model.Lead, error) {
	existing, err := s.leads.Get(ctx, id, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if existing == nil {
		return nil, repository.ErrNotFound
	}

	patch := model.LeadPatch{
		Email:         req.Email,
		Phone:         req.Phone,
		PreferredArea: req.PreferredArea,
		Notes:         req.Notes,
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full_name cannot be empty", ErrInvalidInput)
		}
		patch.FullName = &name
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return nil, fmt.Errorf("%w: budget cannot be negative", ErrInvalidInput)
		}
		patch.Budget = req.Budget
	}
	if req.Urgency != nil {
		u := NormalizeUrgency(string(*req.Urgency))
		patch.Urgency = &u
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if status == "" {
			return nil, fmt.Errorf("%w: status cannot be empty", ErrInvalidInput)
		}
		patch.Status = &status
	}
	if patch.IsEmpty() {
		return existing, nil
	}

	if req.PreferredArea != nil || req.Budget != nil || req.Urgency != nil {
		merged := *existing
		patch.ApplyTo(&merged)
		if err := s.rescore(ctx, &merged); err != nil {
			return nil, err
		}
		patch.IntentScore = &merged.IntentScore
		patch.Tier = &merged.Tier
	}

	updated, err := s.leads.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes a lead and its interactions
func (s *LeadService) Delete(ctx context.Context, id int64, agencyID *int64) error {
	if err := s.leads.Delete(ctx, id, agencyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete lead %d: %w", id, err)
	}
	s.log.Info("lead deleted", "lead_id", id)
	return nil
}

// AddInteraction appends a manual interaction to an existing lead
func (s *LeadService) AddInteraction(ctx context.Context, id int64, agencyID *int64, req model.InteractionCreateRequest) (*model.Interaction, error) {
	if req.Direction != model.DirectionInbound && req.Direction != model.DirectionOutbound {
		return nil, fmt.Errorf("%w: direction must be inbound or outbound", ErrInvalidInput)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	lead, err := s.leads.Get(ctx, id, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if lead == nil {
		return nil, repository.ErrNotFound
	}

	it, err := s.interactions.Append(ctx, model.Interaction{
		LeadID:    id,
		Channel:   NormalizeChannel(req.Channel),
		Direction: req.Direction,
		Message:   message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add interaction: %w", err)
	}
	return it, nil
}

// rescore sets the intent score and score-derived tier of l against the
// catalog of its agency
func (s *LeadService) rescore(ctx context.Context, l *model.Lead) error {
	var catalog []model.Property
	if l.AgencyID != nil {
		props, err := s.catalog.ListProperties(ctx, l.AgencyID)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = props
	}
	l.IntentScore, l.Tier = s.scorer.CalculateIntentScore(l.PreferredArea, budgetAsFloat(l.Budget), l.Urgency, catalog)
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
