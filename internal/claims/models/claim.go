package models

import (
	"time"

	id "alapay/pkg/domain"
)

// Claim is a reimbursement claim submitted on behalf of an insured member.
//
// Invariants:
//   - Status moves only along PENDING -> {APPROVED, REJECTED}; PAID is set by
//     the downstream settlement process, never through this engine
//   - Once Status is PAID the record is locked: no field except Notes may
//     ever change again
//   - RejectionReason is set exactly when Status is REJECTED
//   - Amount is in minor currency units (kobo)
type Claim struct {
	ID              id.ClaimID    `json:"id"`
	MemberID        id.MemberID   `json:"member_id"`
	HospitalID      id.HospitalID `json:"hospital_id"`
	HMOID           id.HMOID      `json:"hmo_id"`
	Amount          int64         `json:"amount"`
	Description     string        `json:"description"`
	ServiceDate     time.Time     `json:"service_date"`
	Status          Status        `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	Notes           []*Note       `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TerminalStatus returns the status beyond which a member claim is locked.
func (c *Claim) TerminalStatus() Status { return StatusPaid }

// CanTransition checks the requested status change against the shared state
// machine without mutating the claim. Use with ApplyTransition in Execute
// callbacks so validation and mutation happen under the store's lock.
func (c *Claim) CanTransition(requested Status, reason string) error {
	_, err := NextStatus(c.Status, requested, reason, c.TerminalStatus())
	return err
}

// ApplyTransition moves the claim to the requested status and records the
// rejection reason when applicable. Call CanTransition first.
func (c *Claim) ApplyTransition(requested Status, reason string, now time.Time) {
	c.Status = requested
	if requested == StatusRejected {
		c.RejectionReason = reason
	}
	c.UpdatedAt = now
}

// ApplyAmountOverride lets an adjudicator approve a different amount than
// claimed. A zero or negative override is ignored.
func (c *Claim) ApplyAmountOverride(amount int64) {
	if amount > 0 && amount != c.Amount {
		c.Amount = amount
	}
}

// AppendNote attaches a persisted note to the claim's ordered history.
func (c *Claim) AppendNote(note *Note) {
	c.Notes = append(c.Notes, note)
}
