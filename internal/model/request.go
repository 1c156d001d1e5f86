package model

// AnalyzeRequest represents a stateless lead analysis request
type AnalyzeRequest struct {
	Message   string `json:"message" binding:"required"`
	Channel   string `json:"channel,omitempty"`
	Name      string `json:"name,omitempty"`
	Contact   string `json:"contact,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// QualifyRequest is the single input shape of the qualification pipeline.
// Optional identity and scope fields are pointers or empty strings.
type QualifyRequest struct {
	Message   string `json:"message" binding:"required"`
	Channel   string `json:"channel,omitempty"` // web, whatsapp, telegram...
	SessionID string `json:"session_id,omitempty"`
	Contact   string `json:"contact,omitempty"` // email or phone, free text
	Name      string `json:"name,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	AgencyID  *int64 `json:"agency_id,omitempty"`
	PostID    *int64 `json:"post_id,omitempty"`
	// Catalog is an optional snapshot used for intent scoring. When nil the
	// agency catalog is loaded from the property store.
	Catalog []Property `json:"catalog,omitempty"`
}

// QualifyResponse is what the qualification pipeline returns to callers
type QualifyResponse struct {
	LeadID  *int64 `json:"lead_id"`
	Created bool   `json:"created"`
	QualificationResult
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ChatPreferenceRequest carries step-by-step preferences from the web chatbot
type ChatPreferenceRequest struct {
	Message      string   `json:"message" binding:"required"`
	Channel      string   `json:"channel,omitempty"`
	Contact      string   `json:"contact,omitempty"`
	Name         string   `json:"name,omitempty"`
	UserID       *int64   `json:"user_id,omitempty"`
	AgencyID     *int64   `json:"agency_id,omitempty"`
	PropertyID   *int64   `json:"property_id,omitempty"`
	Budget       *float64 `json:"budget,omitempty"`
	Area         *string  `json:"area,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	Urgency      *string  `json:"urgency,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	Garage       *bool    `json:"garage,omitempty"`
}

// ChatPreferences is the preference block persisted inside lead notes
type ChatPreferences struct {
	Bedrooms      *int          `json:"bedrooms,omitempty"`
	Bathrooms     *int          `json:"bathrooms,omitempty"`
	Garage        *bool         `json:"garage,omitempty"`
	PropertyType  *PropertyType `json:"property_type,omitempty"`
	PropertyID    *int64        `json:"property_id,omitempty"`
	PropertyTitle *string       `json:"property_title,omitempty"`
}

// ChatPreferenceResponse is returned after preferences were saved
type ChatPreferenceResponse struct {
	LeadID        *int64          `json:"lead_id"`
	Tier          Tier            `json:"tier"`
	IntentScore   float64         `json:"intent_score"`
	IsInterested  bool            `json:"is_interested"`
	InterestLevel InterestLevel   `json:"interest_level"`
	Preferences   ChatPreferences `json:"preferences"`
	Saved         bool            `json:"saved"`
	Message       string          `json:"message"`
}

// ChatReplyRequest asks the conversational agent for a reply
type ChatReplyRequest struct {
	Message   string `json:"message" binding:"required"`
	Channel   string `json:"channel,omitempty"`
	Contact   string `json:"contact,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name,omitempty"`
	AgencyID  *int64 `json:"agency_id,omitempty"`
}

// ChatReplyResponse carries the lead analysis and the generated reply
type ChatReplyResponse struct {
	Analysis *QualifyResponse `json:"lead_analysis"`
	Reply    string           `json:"reply"`
}

// LeadCreateRequest is a manual lead creation from the back office
type LeadCreateRequest struct {
	AgencyID      int64    `json:"agency_id" binding:"required"`
	FullName      string   `json:"full_name" binding:"required"`
	Email         *string  `json:"email,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	PreferredArea *string  `json:"preferred_area,omitempty"`
	Budget        *int64   `json:"budget,omitempty"`
	Urgency       *Urgency `json:"urgency,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	PostID        *int64   `json:"post_id,omitempty"`
}

// LeadUpdateRequest is a partial update; omitted fields keep their value
type LeadUpdateRequest struct {
	FullName      *string  `json:"full_name,omitempty"`
	Email         *string  `json:"email,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	PreferredArea *string  `json:"preferred_area,omitempty"`
	Budget        *int64   `json:"budget,omitempty"`
	Urgency       *Urgency `json:"urgency,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	Status        *string  `json:"status,omitempty"`
}

// InteractionCreateRequest appends a manual interaction to a lead
type InteractionCreateRequest struct {
	Channel   string    `json:"channel" binding:"required"`
	Direction Direction `json:"direction" binding:"required"`
	Message   string    `json:"message" binding:"required"`
}

// TopArea is one entry of the most requested areas ranking
type TopArea struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

// AnalyticsSummary is a snapshot of qualification activity since start-up
type AnalyticsSummary struct {
	TotalLeads         int            `json:"total_leads"`
	TierCounts         map[string]int `json:"tier_counts"`
	UrgencyCounts      map[string]int `json:"urgency_counts"`
	PropertyTypeCounts map[string]int `json:"property_type_counts"`
	ChannelCounts      map[string]int `json:"channel_counts"`
	AverageBudget      *int64         `json:"average_budget"`
	TopAreas           []TopArea      `json:"top_areas"`
}
