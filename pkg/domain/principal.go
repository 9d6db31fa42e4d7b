package domain

import dErrors "alapay/pkg/domain-errors"

// Role is the coarse access role carried in a staff session token.
type Role string

const (
	// RoleAdmin marks HMO back-office administrators.
	RoleAdmin Role = "admin"
	// RoleStaff marks non-admin HMO staff (read paths only).
	RoleStaff Role = "staff"
)

// Principal is the acting user derived from the authenticated session, never
// from client-supplied input. It is threaded explicitly through every core
// call so services stay testable without a request framework.
type Principal struct {
	UserID UserID
	Role   Role
	HMOID  HMOID
}

// Validate rejects principals missing an identity. HMO scope may be zero for
// platform-level operators; per-resource checks happen in the ownership gate.
func (p Principal) Validate() error {
	if p.UserID.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "principal has no user identity")
	}
	return nil
}
