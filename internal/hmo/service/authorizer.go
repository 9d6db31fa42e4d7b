package service

import (
	"context"
	"errors"
	"time"

	hmometrics "alapay/internal/hmo/metrics"
	"alapay/internal/hmo/models"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/platform/sentinel"
)

// Directory provides read-only access to the HMO aggregate with its
// administrator set. Implementations may be backed by Postgres, memory, or a
// cache decorator.
type Directory interface {
	FindByID(ctx context.Context, hmoID id.HMOID) (*models.HMO, error)
}

// Authorizer is the single reusable ownership capability. It is injected into
// every service that performs HMO-scoped mutation (provider claims, plans,
// account tiers, hospitals) rather than re-implemented per call site.
type Authorizer interface {
	// Authorize returns nil when the principal is a registered administrator
	// of the HMO. It is a pure check with no side effects; callers must
	// short-circuit their mutation on error.
	Authorize(ctx context.Context, principalID id.UserID, hmoID id.HMOID) error
}

// Gate is the directory-backed Authorizer.
type Gate struct {
	directory Directory
	metrics   *hmometrics.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMetrics attaches ownership-gate metrics.
func WithMetrics(m *hmometrics.Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate constructs the ownership gate.
func NewGate(directory Directory, opts ...GateOption) *Gate {
	g := &Gate{directory: directory}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Authorize(ctx context.Context, principalID id.UserID, hmoID id.HMOID) error {
	start := time.Now()
	defer g.observe(start)

	if principalID.IsZero() {
		g.denied("forbidden")
		return dErrors.New(dErrors.CodeUnauthorized, "principal has no user identity")
	}
	if hmoID.IsZero() {
		g.denied("not_found")
		return dErrors.New(dErrors.CodeBadRequest, "hmo id is required")
	}

	hmo, err := g.directory.FindByID(ctx, hmoID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.denied("not_found")
			return dErrors.New(dErrors.CodeNotFound, "hmo not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load hmo")
	}

	if !hmo.HasAdministrator(principalID) {
		g.denied("forbidden")
		return dErrors.New(dErrors.CodeForbidden, "user is not an administrator of this hmo")
	}

	if g.metrics != nil {
		g.metrics.IncrementGranted()
	}
	return nil
}

func (g *Gate) denied(reason string) {
	if g.metrics != nil {
		g.metrics.IncrementDenied(reason)
	}
}

func (g *Gate) observe(start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveAuthorize(start)
	}
}
