package model

import "time"

// Lead statuses
const (
	LeadStatusNew = "new"
)

// DefaultLeadName is used when neither a name nor a contact string is known
const DefaultLeadName = "Unnamed lead"

// Lead represents a qualified lead record
type Lead struct {
	ID            int64     `json:"id" db:"id"`
	AgencyID      *int64    `json:"agency_id,omitempty" db:"agency_id"`
	UserID        *int64    `json:"user_id,omitempty" db:"user_id"`
	PostID        *int64    `json:"post_id,omitempty" db:"post_id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Email         *string   `json:"email,omitempty" db:"email"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
	PreferredArea *string   `json:"preferred_area,omitempty" db:"preferred_area"`
	Budget        *int64    `json:"budget,omitempty" db:"budget"`
	Urgency       Urgency   `json:"urgency" db:"urgency"`
	Tier          Tier      `json:"tier" db:"tier"`
	IntentScore   float64   `json:"intent_score" db:"intent_score"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// LeadWithInteractions is a lead plus its interaction log, newest first
type LeadWithInteractions struct {
	Lead
	Interactions []Interaction `json:"interactions"`
}

// LeadPatch carries the fields supplied by one event. A nil field means
// "not supplied" and never clears the stored value.
type LeadPatch struct {
	AgencyID      *int64
	UserID        *int64
	PostID        *int64
	FullName      *string
	Email         *string
	Phone         *string
	PreferredArea *string
	Budget        *int64
	Urgency       *Urgency
	Tier          *Tier
	IntentScore   *float64
	Notes         *string
	Status        *string
}

// ApplyTo overwrites the fields of l for which the patch has a value
func (p LeadPatch) ApplyTo(l *Lead) {
	if p.AgencyID != nil {
		l.AgencyID = p.AgencyID
	}
	if p.UserID != nil {
		l.UserID = p.UserID
	}
	if p.PostID != nil {
		l.PostID = p.PostID
	}
	if p.FullName != nil {
		l.FullName = *p.FullName
	}
	if p.Email != nil {
		l.Email = p.Email
	}
	if p.Phone != nil {
		l.Phone = p.Phone
	}
	if p.PreferredArea != nil {
		l.PreferredArea = p.PreferredArea
	}
	if p.Budget != nil {
		l.Budget = p.Budget
	}
	if p.Urgency != nil {
		l.Urgency = *p.Urgency
	}
	if p.Tier != nil {
		l.Tier = *p.Tier
	}
	if p.IntentScore != nil {
		l.IntentScore = *p.IntentScore
	}
	if p.Notes != nil {
		l.Notes = p.Notes
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
}

// IsEmpty reports whether the patch carries no value at all
func (p LeadPatch) IsEmpty() bool {
	return p == LeadPatch{}
}

// NewLead builds a fresh record from a patch, filling defaults for the
// required columns.
func NewLead(p LeadPatch) Lead {
	l := Lead{
		FullName: DefaultLeadName,
		Urgency:  UrgencyMedium,
		Tier:     TierC,
		Status:   LeadStatusNew,
	}
	p.ApplyTo(&l)
	return l
}

// Direction of an interaction relative to the agency
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Interaction is one logged message exchanged with a lead
type Interaction struct {
	ID        int64     `json:"id" db:"id"`
	LeadID    int64     `json:"lead_id" db:"lead_id"`
	Channel   string    `json:"channel" db:"channel"`
	Direction Direction `json:"direction" db:"direction"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Property is a catalog entry used for intent score matching. Only Area and
// Price take part in scoring; the engine never mutates catalog entries.
type Property struct {
	ID        int64     `json:"id" db:"id" yaml:"id"`
	AgencyID  *int64    `json:"agency_id,omitempty" db:"agency_id" yaml:"agency_id"`
	Title     *string   `json:"title,omitempty" db:"title" yaml:"title"`
	Area      string    `json:"area" db:"area" yaml:"area"`
	Price     float64   `json:"price" db:"price" yaml:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"-"`
}
