package service

import (
	"context"
	"fmt"
	"strings"

	"leadagent/internal/model"
	"leadagent/internal/repository"
)

// Contact is a free-text contact split into its email or phone form
type Contact struct {
	Email *string
	Phone *string
}

// ParseContact treats anything with "@" as an email; otherwise it keeps the
// digits and "+" signs as a phone number. Unusable input yields an empty Contact.
func ParseContact(raw string) Contact {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Contact{}
	}
	if strings.Contains(raw, "@") {
		return Contact{Email: &raw}
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return Contact{}
	}
	phone := b.String()
	return Contact{Phone: &phone}
}

// IdentityResolver finds the existing lead for an event
type IdentityResolver struct {
	leads repository.LeadStore
}

// NewIdentityResolver creates a resolver over a lead store
func NewIdentityResolver(leads repository.LeadStore) *IdentityResolver {
	return &IdentityResolver{leads: leads}
}

// Find searches by user id, then phone, then email, scoped to the agency
// when known. It returns nil, nil when no identity is derivable or nothing matches.
func (r *IdentityResolver) Find(ctx context.Context, userID *int64, c Contact, agencyID *int64) (*model.Lead, error) {
	filters := make([]repository.LeadFilter, 0, 3)
	if userID != nil {
		filters = append(filters, repository.LeadFilter{UserID: userID, AgencyID: agencyID})
	}
	if c.Phone != nil {
		filters = append(filters, repository.LeadFilter{Phone: c.Phone, AgencyID: agencyID})
	}
	if c.Email != nil {
		filters = append(filters, repository.LeadFilter{Email: c.Email, AgencyID: agencyID})
	}

	for _, f := range filters {
		lead, err := r.leads.FindOne(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to look up lead: %w", err)
		}
		if lead != nil {
			return lead, nil
		}
	}
	return nil, nil
}

// ChooseName picks the display name: the supplied name, then the stored
// name, then the raw contact, then a placeholder.
func ChooseName(name string, existing *model.Lead, contact string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if existing != nil && strings.TrimSpace(existing.FullName) != "" {
		return existing.FullName
	}
	if c := strings.TrimSpace(contact); c != "" {
		return c
	}
	return model.DefaultLeadName
}

// NotesBlock renders the qualification summary appended to lead notes
func NotesBlock(r model.QualificationResult) string {
	block := fmt.Sprintf("Agent -> tier %s (%s)", r.Tier, r.Rationale)

	var details []string
	if r.PropertyType != nil {
		details = append(details, "type: "+string(*r.PropertyType))
	}
	if r.Area != nil {
		details = append(details, "area: "+*r.Area)
	}
	if r.StatedIntent != nil {
		details = append(details, "intent: "+*r.StatedIntent)
	}
	if len(details) > 0 {
		block += "; " + strings.Join(details, ", ")
	}
	return block
}

// MergeNotes appends block to existing notes unless it is already there verbatim
func MergeNotes(existing *string, block string) string {
	if existing == nil || *existing == "" {
		return block
	}
	if strings.Contains(*existing, block) {
		return *existing
	}
	return *existing + "\n" + block
}

// AgentSummary is the outbound interaction and memory turn for a result
func AgentSummary(r model.QualificationResult) string {
	budget := "n/a"
	if r.Budget != nil {
		budget = fmt.Sprintf("%d", *r.Budget)
	}
	area := "n/a"
	if r.Area != nil {
		area = *r.Area
	}
	ptype := "n/a"
	if r.PropertyType != nil {
		ptype = string(*r.PropertyType)
	}
	urgency := "n/a"
	if r.Urgency != "" {
		urgency = string(r.Urgency)
	}
	tier := r.Tier
	if tier == "" {
		tier = model.TierC
	}
	rationale := r.Rationale
	if rationale == "" {
		rationale = RationaleMissing
	}

	return fmt.Sprintf("Detected -> budget: %s, area: %s, type: %s, urgency: %s, tier: %s; rationale: %s",
		budget, area, ptype, urgency, tier, rationale)
}

// MergeInput is everything one qualification event supplies to a lead record
type MergeInput struct {
	Result     model.QualificationResult
	Contact    Contact
	RawName    string
	RawContact string
	UserID     *int64
	AgencyID   *int64
	PostID     *int64
}

// BuildLeadPatch computes the fields to write for an event. Absent values are
// left nil so they never overwrite stored data.
func BuildLeadPatch(in MergeInput, existing *model.Lead) model.LeadPatch {
	r := in.Result
	name := ChooseName(in.RawName, existing, in.RawContact)
	urgency := r.Urgency
	tier := r.Tier
	score := r.IntentScore

	var existingNotes *string
	status := model.LeadStatusNew
	if existing != nil {
		existingNotes = existing.Notes
		if existing.Status != "" {
			status = existing.Status
		}
	}
	notes := MergeNotes(existingNotes, NotesBlock(r))

	p := model.LeadPatch{
		AgencyID:      in.AgencyID,
		UserID:        in.UserID,
		PostID:        in.PostID,
		FullName:      &name,
		Email:         in.Contact.Email,
		Phone:         in.Contact.Phone,
		PreferredArea: r.Area,
		Budget:        r.Budget,
		Tier:          &tier,
		IntentScore:   &score,
		Notes:         &notes,
		Status:        &status,
	}
	if urgency.Valid() {
		p.Urgency = &urgency
	}
	return p
}
