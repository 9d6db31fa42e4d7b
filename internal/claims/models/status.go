package models

import dErrors "alapay/pkg/domain-errors"

// Status is a claim lifecycle state. Member claims and provider claims share
// the same vocabulary but lock at different terminal states: a member claim
// stays mutable through APPROVED and locks at PAID (settlement happens
// downstream), while a provider claim locks at APPROVED because approval is
// its de-facto settlement trigger.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPaid     Status = "PAID"
	StatusOverdue  Status = "OVERDUE"
)

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid, StatusOverdue:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown claim status %q", s)
}

// NextStatus is the shared transition function for both claim kinds,
// parameterized by the terminal status of the entity.
//
// Rules, checked in order:
//  1. current == terminal            -> Locked (no edge leaves a locked claim)
//  2. current != PENDING             -> InvalidTransition (decided claims
//     cannot be re-decided or re-pended through this engine)
//  3. requested not APPROVED/REJECTED -> InvalidTransition (no jumping
//     straight to PAID or OVERDUE)
//  4. requested == REJECTED, no reason -> MissingReason (every rejection
//     carries a human-readable justification that becomes a permanent Note)
//
// On success the new status is simply the requested one. Amount overrides are
// the caller's concern; the state machine only governs status edges.
func NextStatus(current, requested Status, reason string, terminal Status) (Status, error) {
	if current == terminal {
		return "", dErrors.Newf(dErrors.CodeLocked, "claim is %s and permanently locked", terminal)
	}
	if current != StatusPending {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition, "no transition from %s to %s", current, requested)
	}
	if requested != StatusApproved && requested != StatusRejected {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition, "no transition from %s to %s", current, requested)
	}
	if requested == StatusRejected && reason == "" {
		return "", dErrors.New(dErrors.CodeMissingReason, "reason required to reject")
	}
	return requested, nil
}
