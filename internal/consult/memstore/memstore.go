// Package memstore provides an in-memory implementation of consult.Store.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/linnemanlabs/sahayak/internal/consult"
)

// Store holds consultations and patients in memory. Suitable for dev/testing.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*consult.Consultation
	ordered  []string // ids in insertion order
	patients map[string]consult.Patient
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		byID:     make(map[string]*consult.Consultation),
		patients: make(map[string]consult.Patient),
	}
}

// Get retrieves a consultation by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*consult.Consultation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	return clone(c), true, nil
}

// Put stores a copy of the consultation, replacing any with the same ID.
func (s *Store) Put(_ context.Context, c *consult.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[c.ID]; !exists {
		s.ordered = append(s.ordered, c.ID)
	}
	s.byID[c.ID] = clone(c)
	return nil
}

// List returns copies of the newest consultations matching f.
func (s *Store) List(_ context.Context, f consult.ListFilter) ([]*consult.Consultation, error) {
	limit := consult.NormalizeLimit(f.Limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*consult.Consultation, 0, min(limit, len(s.ordered)))
	for _, id := range s.ordered {
		c := s.byID[id]
		if f.PatientID != "" && c.PatientID != f.PatientID {
			continue
		}
		matched = append(matched, c)
	}

	// newest first; stable so equal timestamps keep reverse insertion order
	slices.Reverse(matched)
	slices.SortStableFunc(matched, func(a, b *consult.Consultation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*consult.Consultation, len(matched))
	for i, c := range matched {
		out[i] = clone(c)
	}
	return out, nil
}

// GetPatient retrieves a patient profile by ID. Returns a copy.
func (s *Store) GetPatient(_ context.Context, id string) (*consult.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

// PutPatient stores a copy of the profile, replacing any with the same ID.
func (s *Store) PutPatient(_ context.Context, p *consult.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = *p
	return nil
}

func clone(c *consult.Consultation) *consult.Consultation {
	cp := *c
	cp.Symptoms = slices.Clone(c.Symptoms)
	cp.UnknownSymptoms = slices.Clone(c.UnknownSymptoms)
	return &cp
}
