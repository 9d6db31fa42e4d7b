package models

import (
	"time"

	"github.com/google/uuid"

	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
)

// ClaimRef points a note at exactly one claim, member-submitted or
// provider-submitted, never both. Fields are unexported so a ref can only be
// built through the constructors below.
type ClaimRef struct {
	claimID         id.ClaimID
	providerClaimID id.ProviderClaimID
}

// MemberClaimRef builds a reference to a member-submitted claim.
func MemberClaimRef(claimID id.ClaimID) ClaimRef {
	return ClaimRef{claimID: claimID}
}

// ProviderClaimRef builds a reference to a provider-submitted claim.
func ProviderClaimRef(providerClaimID id.ProviderClaimID) ClaimRef {
	return ClaimRef{providerClaimID: providerClaimID}
}

// MemberClaimID returns the member-claim side of the union.
func (r ClaimRef) MemberClaimID() (id.ClaimID, bool) {
	return r.claimID, !r.claimID.IsZero()
}

// ProviderClaimID returns the provider-claim side of the union.
func (r ClaimRef) ProviderClaimID() (id.ProviderClaimID, bool) {
	return r.providerClaimID, !r.providerClaimID.IsZero()
}

// Validate enforces the exactly-one invariant.
func (r ClaimRef) Validate() error {
	member := !r.claimID.IsZero()
	provider := !r.providerClaimID.IsZero()
	if member == provider {
		return dErrors.New(dErrors.CodeInvariantViolation, "note must reference exactly one claim")
	}
	return nil
}

// Note is an immutable annotation written in the same transaction as the
// status change it documents. There is no update or delete path anywhere in
// the core; the collection is append-only history.
type Note struct {
	ID        id.NoteID `json:"id"`
	Body      string    `json:"body"`
	AuthorID  id.UserID `json:"author_id"`
	Ref       ClaimRef  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNote validates and constructs a note. The body must be non-empty: notes
// exist to carry the human-readable evidence for a status change.
func NewNote(authorID id.UserID, body string, ref ClaimRef, now time.Time) (*Note, error) {
	if authorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "note requires an author")
	}
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "note body must not be empty")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &Note{
		ID:        id.NoteID(uuid.New()),
		Body:      body,
		AuthorID:  authorID,
		Ref:       ref,
		CreatedAt: now,
	}, nil
}
