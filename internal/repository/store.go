package repository

import (
	"context"
	"errors"

	"leadagent/internal/model"
)

// ErrNotFound is returned by mutations that target a missing row
var ErrNotFound = errors.New("record not found")

// LeadFilter selects a single lead. Exactly one identity field is expected;
// AgencyID narrows the search when set.
type LeadFilter struct {
	AgencyID *int64
	UserID   *int64
	Phone    *string
	Email    *string
}

// IsEmpty reports whether the filter carries no identity field
func (f LeadFilter) IsEmpty() bool {
	return f.UserID == nil && f.Phone == nil && f.Email == nil
}

// ListFilter scopes lead listings
type ListFilter struct {
	AgencyID *int64
	Limit    int
	Offset   int
}

// LeadStore persists lead records. Lookups return nil, nil when nothing matches.
type LeadStore interface {
	FindOne(ctx context.Context, f LeadFilter) (*model.Lead, error)
	Insert(ctx context.Context, lead model.Lead) (*model.Lead, error)
	Update(ctx context.Context, id int64, patch model.LeadPatch) (*model.Lead, error)
	Get(ctx context.Context, id int64, agencyID *int64) (*model.Lead, error)
	List(ctx context.Context, f ListFilter) ([]model.Lead, error)
	Delete(ctx context.Context, id int64, agencyID *int64) error
}

// InteractionLog records messages exchanged with a lead
type InteractionLog interface {
	Append(ctx context.Context, it model.Interaction) (*model.Interaction, error)
	ListByLead(ctx context.Context, leadID int64) ([]model.Interaction, error)
}

// PropertyCatalog is read-only catalog access used for intent scoring
type PropertyCatalog interface {
	ListProperties(ctx context.Context, agencyID *int64) ([]model.Property, error)
	GetProperty(ctx context.Context, id int64) (*model.Property, error)
}

// Store bundles every collaborator the service layer needs
type Store interface {
	LeadStore
	InteractionLog
	PropertyCatalog
	Close() error
}

// DefaultListLimit caps listings when the caller gives no limit
const DefaultListLimit = 100

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f ListFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
