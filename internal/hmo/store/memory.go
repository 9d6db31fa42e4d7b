package store

import (
	"context"
	"sync"

	"alapay/internal/hmo/models"
	id "alapay/pkg/domain"
	"alapay/pkg/platform/sentinel"
)

// InMemory keeps HMO aggregates in a map for unit tests and local runs.
// It favors clarity over performance.
type InMemory struct {
	mu   sync.RWMutex
	hmos map[id.HMOID]*models.HMO
}

func NewInMemory() *InMemory {
	return &InMemory{hmos: make(map[id.HMOID]*models.HMO)}
}

// Save inserts or replaces an HMO aggregate.
func (s *InMemory) Save(_ context.Context, hmo *models.HMO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hmos[hmo.ID] = cloneHMO(hmo)
	return nil
}

// FindByID returns a copy so callers cannot mutate the stored aggregate.
func (s *InMemory) FindByID(_ context.Context, hmoID id.HMOID) (*models.HMO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hmo, ok := s.hmos[hmoID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneHMO(hmo), nil
}

func cloneHMO(h *models.HMO) *models.HMO {
	c := *h
	c.AdministratorIDs = append([]id.UserID(nil), h.AdministratorIDs...)
	c.HospitalIDs = append([]id.HospitalID(nil), h.HospitalIDs...)
	c.PlanIDs = append(h.PlanIDs[:0:0], h.PlanIDs...)
	c.AccountTierIDs = append(h.AccountTierIDs[:0:0], h.AccountTierIDs...)
	return &c
}
