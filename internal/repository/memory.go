package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"leadagent/internal/model"
)

// MemoryStore keeps leads, interactions and the catalog in process memory.
// It backs the CLI, local runs without a database, and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	leads        map[int64]model.Lead
	interactions map[int64][]model.Interaction
	properties   []model.Property
	nextLeadID   int64
	nextItemID   int64
}

// NewMemoryStore creates a store with an optional catalog
func NewMemoryStore(catalog []model.Property) *MemoryStore {
	s := &MemoryStore{
		leads:        make(map[int64]model.Lead),
		interactions: make(map[int64][]model.Interaction),
	}
	for i, p := range catalog {
		if p.ID == 0 {
			p.ID = int64(i + 1)
		}
		s.properties = append(s.properties, p)
	}
	return s
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// FindOne returns the most recently updated lead matching the filter
func (s *MemoryStore) FindOne(_ context.Context, f LeadFilter) (*model.Lead, error) {
	if f.IsEmpty() {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Lead
	for _, l := range s.leads {
		if !matchesFilter(l, f) {
			continue
		}
		if best == nil || l.UpdatedAt.After(best.UpdatedAt) ||
			(l.UpdatedAt.Equal(best.UpdatedAt) && l.ID > best.ID) {
			found := l
			best = &found
		}
	}
	return best, nil
}

func matchesFilter(l model.Lead, f LeadFilter) bool {
	if f.AgencyID != nil && !int64Equal(l.AgencyID, f.AgencyID) {
		return false
	}
	switch {
	case f.UserID != nil:
		return int64Equal(l.UserID, f.UserID)
	case f.Phone != nil:
		return l.Phone != nil && *l.Phone == *f.Phone
	default:
		return l.Email != nil && strings.EqualFold(*l.Email, *f.Email)
	}
}

func int64Equal(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

// Insert stores a new lead
func (s *MemoryStore) Insert(_ context.Context, lead model.Lead) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLeadID++
	now := time.Now().UTC()
	lead.ID = s.nextLeadID
	lead.CreatedAt, lead.UpdatedAt = now, now
	s.leads[lead.ID] = lead

	out := lead
	return &out, nil
}

// Update applies the non-nil fields of patch
func (s *MemoryStore) Update(_ context.Context, id int64, patch model.LeadPatch) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.ApplyTo(&lead)
	lead.UpdatedAt = time.Now().UTC()
	s.leads[id] = lead

	out := lead
	return &out, nil
}

// Get retrieves a lead, optionally scoped to an agency
func (s *MemoryStore) Get(_ context.Context, id int64, agencyID *int64) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok || (agencyID != nil && !int64Equal(lead.AgencyID, agencyID)) {
		return nil, nil
	}
	return &lead, nil
}

// List returns leads, most recently created first
func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]model.Lead, error) {
	s.mu.RLock()
	leads := make([]model.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if f.AgencyID != nil && !int64Equal(l.AgencyID, f.AgencyID) {
			continue
		}
		leads = append(leads, l)
	}
	s.mu.RUnlock()

	sort.Slice(leads, func(i, j int) bool {
		if leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].ID > leads[j].ID
		}
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})

	start := f.offset()
	if start >= len(leads) {
		return []model.Lead{}, nil
	}
	end := start + f.limit()
	if end > len(leads) {
		end = len(leads)
	}
	return leads[start:end], nil
}

// Delete removes a lead and its interactions
func (s *MemoryStore) Delete(_ context.Context, id int64, agencyID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok || (agencyID != nil && !int64Equal(lead.AgencyID, agencyID)) {
		return ErrNotFound
	}
	delete(s.leads, id)
	delete(s.interactions, id)
	return nil
}

// Append logs one interaction for an existing lead
func (s *MemoryStore) Append(_ context.Context, it model.Interaction) (*model.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[it.LeadID]; !ok {
		return nil, fmt.Errorf("failed to log interaction: lead %d: %w", it.LeadID, ErrNotFound)
	}
	s.nextItemID++
	it.ID = s.nextItemID
	it.CreatedAt = time.Now().UTC()
	s.interactions[it.LeadID] = append(s.interactions[it.LeadID], it)

	out := it
	return &out, nil
}

// ListByLead returns the interactions of a lead, newest first
func (s *MemoryStore) ListByLead(_ context.Context, leadID int64) ([]model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.interactions[leadID]
	out := make([]model.Interaction, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out, nil
}

// ListProperties returns the catalog, scoped to an agency when given
func (s *MemoryStore) ListProperties(_ context.Context, agencyID *int64) ([]model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if agencyID != nil && !int64Equal(p.AgencyID, agencyID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProperty retrieves a single property
func (s *MemoryStore) GetProperty(_ context.Context, id int64) (*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.properties {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

// catalogFile is the YAML layout of a catalog seed file
type catalogFile struct {
	Properties []model.Property `yaml:"properties"`
}

// LoadCatalog reads a YAML property catalog:
//
//	properties:
//	  - id: 1
//	    agency_id: 1
//	    title: Loft
//	    area: Downtown
//	    price: 105000
func LoadCatalog(path string) ([]model.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog content
func ParseCatalog(data []byte) ([]model.Property, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, p := range file.Properties {
		if strings.TrimSpace(p.Area) == "" && p.Price == 0 {
			return nil, fmt.Errorf("catalog entry %d has neither area nor price", i)
		}
	}
	return file.Properties, nil
}

// Compile-time interface checks
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)
