package models

import (
	"time"

	"github.com/google/uuid"

	id "alapay/pkg/domain"
)

// ServiceItem is one line of a provider claim's structured service breakdown.
type ServiceItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}

// Total returns the line total in minor currency units.
func (s ServiceItem) Total() int64 {
	return int64(s.Quantity) * s.UnitAmount
}

// ProviderClaim is a claim submitted by a hospital directly to an HMO for
// services rendered.
//
// Invariants:
//   - Status moves only along PENDING -> {APPROVED, REJECTED}; OVERDUE is set
//     by the scheduled ageing process, never through this engine
//   - Once Status is APPROVED the record is locked: approval is the
//     settlement trigger for provider claims (they carry their own payment
//     record), so no status or field mutation is permitted afterwards
//   - Mutations additionally require the acting principal to administer the
//     owning HMO; that check lives in the ownership gate, not here
type ProviderClaim struct {
	ID                id.ProviderClaimID `json:"id"`
	HMOID             id.HMOID           `json:"hmo_id"`
	HospitalID        id.HospitalID      `json:"hospital_id"`
	EnrolleeNumber    string             `json:"enrollee_number"`
	ReferenceCode     string             `json:"reference_code"`
	Diagnosis         string             `json:"diagnosis"`
	Services          []ServiceItem      `json:"services"`
	DocumentURLs      []string           `json:"document_urls,omitempty"`
	Status            Status             `json:"status"`
	AuthorizationCode string             `json:"authorization_code,omitempty"`
	PaymentID         *uuid.UUID         `json:"payment_id,omitempty"`
	PreauthRequestID  *uuid.UUID         `json:"preauth_request_id,omitempty"`
	RejectionReason   string             `json:"rejection_reason,omitempty"`
	Notes             []*Note            `json:"notes"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TerminalStatus returns the status beyond which a provider claim is locked.
func (c *ProviderClaim) TerminalStatus() Status { return StatusApproved }

// TotalAmount sums the service breakdown.
func (c *ProviderClaim) TotalAmount() int64 {
	var total int64
	for _, s := range c.Services {
		total += s.Total()
	}
	return total
}

// CanTransition checks the requested status change against the shared state
// machine without mutating the claim.
func (c *ProviderClaim) CanTransition(requested Status, reason string) error {
	_, err := NextStatus(c.Status, requested, reason, c.TerminalStatus())
	return err
}

// ApplyTransition moves the claim to the requested status and records the
// rejection reason when applicable. Call CanTransition first.
func (c *ProviderClaim) ApplyTransition(requested Status, reason string, now time.Time) {
	c.Status = requested
	if requested == StatusRejected {
		c.RejectionReason = reason
	}
	c.UpdatedAt = now
}

// AppendNote attaches a persisted note to the claim's ordered history.
func (c *ProviderClaim) AppendNote(note *Note) {
	c.Notes = append(c.Notes, note)
}
