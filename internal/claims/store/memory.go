package store

import (
	"context"
	"sort"
	"sync"

	"alapay/internal/claims/models"
	id "alapay/pkg/domain"
	"alapay/pkg/platform/sentinel"
)

// InMemoryClaims keeps member claims in a map for unit tests and local runs.
type InMemoryClaims struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*models.Claim
}

func NewInMemoryClaims() *InMemoryClaims {
	return &InMemoryClaims{claims: make(map[id.ClaimID]*models.Claim)}
}

// Save inserts or replaces a claim. Used by submission flows and test setup;
// status mutation goes through Execute.
func (s *InMemoryClaims) Save(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = cloneClaim(claim)
	return nil
}

// FindForMember loads a claim scoped to the member and HMO it belongs to.
// A claim that exists under a different member or HMO is reported as not
// found, never as forbidden, so visibility does not leak across tenants.
func (s *InMemoryClaims) FindForMember(_ context.Context, claimID id.ClaimID, memberID id.MemberID, hmoID id.HMOID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok || claim.MemberID != memberID || claim.HMOID != hmoID {
		return nil, sentinel.ErrNotFound
	}
	return cloneClaim(claim), nil
}

// FindByID loads a claim by identifier alone (treatment-claims review path).
func (s *InMemoryClaims) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneClaim(claim), nil
}

// Execute runs validate then mutate on the stored claim while holding the
// store lock, so a concurrent mutation cannot interleave between the status
// check and the write. The loser of a race observes the post-transition
// status inside validate and fails.
func (s *InMemoryClaims) Execute(_ context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)
	return cloneClaim(claim), nil
}

// InMemoryProviderClaims keeps provider claims in a map.
type InMemoryProviderClaims struct {
	mu     sync.RWMutex
	claims map[id.ProviderClaimID]*models.ProviderClaim
}

func NewInMemoryProviderClaims() *InMemoryProviderClaims {
	return &InMemoryProviderClaims{claims: make(map[id.ProviderClaimID]*models.ProviderClaim)}
}

func (s *InMemoryProviderClaims) Save(_ context.Context, claim *models.ProviderClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = cloneProviderClaim(claim)
	return nil
}

func (s *InMemoryProviderClaims) FindByID(_ context.Context, claimID id.ProviderClaimID) (*models.ProviderClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProviderClaim(claim), nil
}

// ListByHMO returns the HMO's provider claims ordered by creation time,
// newest first, with limit/offset pagination.
func (s *InMemoryProviderClaims) ListByHMO(_ context.Context, hmoID id.HMOID, limit, offset int) ([]*models.ProviderClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ProviderClaim
	for _, claim := range s.claims {
		if claim.HMOID == hmoID {
			out = append(out, cloneProviderClaim(claim))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Execute mirrors InMemoryClaims.Execute for provider claims.
func (s *InMemoryProviderClaims) Execute(_ context.Context, claimID id.ProviderClaimID, validate func(*models.ProviderClaim) error, mutate func(*models.ProviderClaim)) (*models.ProviderClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)
	return cloneProviderClaim(claim), nil
}

// InMemoryNotes is the insert-only note ledger backing store. It exposes no
// update or delete, preserving the audit-trail guarantee by construction.
type InMemoryNotes struct {
	mu    sync.RWMutex
	notes []*models.Note
}

func NewInMemoryNotes() *InMemoryNotes {
	return &InMemoryNotes{}
}

func (s *InMemoryNotes) Insert(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *note
	s.notes = append(s.notes, &copied)
	return nil
}

// ListByRef returns notes attached to the referenced claim in insertion
// order.
func (s *InMemoryNotes) ListByRef(_ context.Context, ref models.ClaimRef) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Note
	for _, note := range s.notes {
		if note.Ref == ref {
			copied := *note
			out = append(out, &copied)
		}
	}
	return out, nil
}

func cloneClaim(c *models.Claim) *models.Claim {
	copied := *c
	copied.Notes = append([]*models.Note(nil), c.Notes...)
	return &copied
}

func cloneProviderClaim(c *models.ProviderClaim) *models.ProviderClaim {
	copied := *c
	copied.Services = append([]models.ServiceItem(nil), c.Services...)
	copied.DocumentURLs = append([]string(nil), c.DocumentURLs...)
	copied.Notes = append([]*models.Note(nil), c.Notes...)
	return &copied
}
