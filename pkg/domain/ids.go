// Package domain holds typed identifiers shared across services.
//
// Each entity gets its own UUID-backed type so a claim ID can never be passed
// where an HMO ID is expected. Parse functions enforce the trust-boundary
// invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "alapay/pkg/domain-errors"
)

type (
	// UserID identifies a staff user (administrator) acting on behalf of an HMO.
	UserID uuid.UUID
	// HMOID identifies a Health Maintenance Organization tenant.
	HMOID uuid.UUID
	// HospitalID identifies a hospital/provider registered under an HMO.
	HospitalID uuid.UUID
	// MemberID identifies an insured individual (enrollee).
	MemberID uuid.UUID
	// ClaimID identifies a member-submitted reimbursement claim.
	ClaimID uuid.UUID
	// ProviderClaimID identifies a hospital-submitted claim.
	ProviderClaimID uuid.UUID
	// NoteID identifies an immutable claim annotation.
	NoteID uuid.UUID
)

func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id HMOID) String() string           { return uuid.UUID(id).String() }
func (id HospitalID) String() string      { return uuid.UUID(id).String() }
func (id MemberID) String() string        { return uuid.UUID(id).String() }
func (id ClaimID) String() string         { return uuid.UUID(id).String() }
func (id ProviderClaimID) String() string { return uuid.UUID(id).String() }
func (id NoteID) String() string          { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool          { return uuid.UUID(id) == uuid.Nil }
func (id HMOID) IsZero() bool           { return uuid.UUID(id) == uuid.Nil }
func (id HospitalID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ProviderClaimID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id NoteID) IsZero() bool          { return uuid.UUID(id) == uuid.Nil }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseHMOID(s string) (HMOID, error) {
	u, err := parseUUID(s)
	return HMOID(u), err
}

func ParseHospitalID(s string) (HospitalID, error) {
	u, err := parseUUID(s)
	return HospitalID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s)
	return MemberID(u), err
}

func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	return ClaimID(u), err
}

func ParseProviderClaimID(s string) (ProviderClaimID, error) {
	u, err := parseUUID(s)
	return ProviderClaimID(u), err
}

func ParseNoteID(s string) (NoteID, error) {
	u, err := parseUUID(s)
	return NoteID(u), err
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID so no
// zero-valued identifier survives a trust boundary.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
