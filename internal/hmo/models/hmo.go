package models

import (
	"time"

	"github.com/google/uuid"

	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
)

// HMOStatus is the lifecycle state of an HMO tenant.
type HMOStatus string

const (
	HMOStatusActive   HMOStatus = "active"
	HMOStatusInactive HMOStatus = "inactive"
)

// HMO is the tenant aggregate. It owns hospitals, healthcare plans, account
// tiers and provider claims; ownership checks resolve through its
// administrator set.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - AdministratorIDs may be empty; an empty set simply denies everyone
type HMO struct {
	ID               id.HMOID        `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Status           HMOStatus       `json:"status"`
	AdministratorIDs []id.UserID     `json:"administrator_ids"`
	HospitalIDs      []id.HospitalID `json:"hospital_ids,omitempty"`
	PlanIDs          []uuid.UUID     `json:"plan_ids,omitempty"`
	AccountTierIDs   []uuid.UUID     `json:"account_tier_ids,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasAdministrator reports whether the user is a registered administrator.
// Safe on a nil or empty administrator set.
func (h *HMO) HasAdministrator(userID id.UserID) bool {
	for _, adminID := range h.AdministratorIDs {
		if adminID == userID {
			return true
		}
	}
	return false
}

// NewHMO validates and constructs an HMO aggregate.
func NewHMO(hmoID id.HMOID, name, email string, now time.Time) (*HMO, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hmo name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hmo name must be 128 characters or less")
	}
	return &HMO{
		ID:        hmoID,
		Name:      name,
		Email:     email,
		Status:    HMOStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
