// Package service orchestrates claim status mutations. Each mutation loads,
// authorizes, transitions, notes and persists atomically per claim.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	claimmetrics "alapay/internal/claims/metrics"
	"alapay/internal/claims/models"
	hmoservice "alapay/internal/hmo/service"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/platform/sentinel"
	"alapay/pkg/requestcontext"
)

// ClaimStore persists member claims. Execute runs its callbacks under the
// store's lock (mutex shard in memory, row lock in Postgres) so the
// transition re-check and the write cannot interleave with a concurrent
// mutation.
type ClaimStore interface {
	FindForMember(ctx context.Context, claimID id.ClaimID, memberID id.MemberID, hmoID id.HMOID) (*models.Claim, error)
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	Execute(ctx context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error)
}

// ProviderClaimStore persists provider claims.
type ProviderClaimStore interface {
	FindByID(ctx context.Context, claimID id.ProviderClaimID) (*models.ProviderClaim, error)
	ListByHMO(ctx context.Context, hmoID id.HMOID, limit, offset int) ([]*models.ProviderClaim, error)
	Execute(ctx context.Context, claimID id.ProviderClaimID, validate func(*models.ProviderClaim) error, mutate func(*models.ProviderClaim)) (*models.ProviderClaim, error)
}

// NoteLedger appends the annotation that documents a status change.
type NoteLedger interface {
	Append(ctx context.Context, authorID id.UserID, body string, ref models.ClaimRef) (*models.Note, error)
}

// StatusChange describes a committed transition, handed to the notifier
// after the transaction commits.
type StatusChange struct {
	Kind    string // "member" or "provider"
	ClaimID string
	HMOID   id.HMOID
	From    models.Status
	To      models.Status
	Reason  string
	ActorID id.UserID
	At      time.Time
}

// Notifier is informed of committed transitions. It must never block the
// mutation path or fail it; implementations enqueue and return.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, change StatusChange)
}

// Action is the treatment-claims review verb.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

// ParseAction validates a client-supplied review action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionDecline:
		return Action(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", s)
}

// MemberClaimQuery scopes a member-claim lookup to the member and HMO the
// caller may see. The scoping doubles as the authorization for member-claim
// mutation: staff only reach claims under their own HMO's records.
type MemberClaimQuery struct {
	ClaimID  id.ClaimID
	MemberID id.MemberID
	HMOID    id.HMOID
}

func (q MemberClaimQuery) validate() error {
	if q.ClaimID.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "claim id is required")
	}
	if q.MemberID.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "member id is required")
	}
	if q.HMOID.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "hmo id is required")
	}
	return nil
}

// Service is the claim mutation engine. Both claim kinds share one
// algorithm: load, gate (provider claims only), run the state machine,
// append the note and persist, all inside one StoreTx unit.
type Service struct {
	memberClaims   ClaimStore
	providerClaims ProviderClaimStore
	ledger         NoteLedger
	authorizer     hmoservice.Authorizer
	tx             StoreTx
	notifier       Notifier
	metrics        *claimmetrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type serviceConfig struct {
	tx       StoreTx
	notifier Notifier
	metrics  *claimmetrics.Metrics
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*serviceConfig)

// WithTx sets the transactional boundary (Postgres adapter in production).
func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithNotifier sets the post-commit notifier.
func WithNotifier(n Notifier) Option {
	return func(c *serviceConfig) { c.notifier = n }
}

// WithMetrics attaches claim-engine metrics.
func WithMetrics(m *claimmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func NewService(memberClaims ClaimStore, providerClaims ProviderClaimStore, ledger NoteLedger, authorizer hmoservice.Authorizer, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = NewInMemoryTx()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		memberClaims:   memberClaims,
		providerClaims: providerClaims,
		ledger:         ledger,
		authorizer:     authorizer,
		tx:             cfg.tx,
		notifier:       cfg.notifier,
		metrics:        cfg.metrics,
		logger:         cfg.logger,
		tracer:         otel.Tracer("alapay/internal/claims"),
	}
}

// UpdateMemberClaimStatus moves a member claim to the requested status.
//
// The member/HMO linkage in the query constrains visibility, so no separate
// ownership check runs here; a claim outside the caller's scope is simply
// not found. An amount override lets adjudicators pay a different amount
// than claimed; zero means no override.
func (s *Service) UpdateMemberClaimStatus(ctx context.Context, query MemberClaimQuery, principal id.Principal, newStatus models.Status, reason string, amountOverride int64) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.UpdateMemberClaimStatus")
	defer span.End()
	start := time.Now()
	defer s.observe("update_member_claim_status", start)

	if err := principal.Validate(); err != nil {
		return nil, s.fail(span, "member", err)
	}
	if err := query.validate(); err != nil {
		return nil, s.fail(span, "member", err)
	}
	reason = strings.TrimSpace(reason)

	var (
		updated *models.Claim
		from    models.Status
	)
	err := s.tx.RunInTx(ctx, query.ClaimID.String(), func(txCtx context.Context) error {
		claim, err := s.memberClaims.FindForMember(txCtx, query.ClaimID, query.MemberID, query.HMOID)
		if err != nil {
			return translateStoreErr(err, "claim not found")
		}
		from = claim.Status

		// Fail before writing anything; the Execute callback re-checks under
		// the store lock.
		if err := claim.CanTransition(newStatus, reason); err != nil {
			return err
		}

		note, err := s.ledger.Append(txCtx, principal.UserID, noteBody(newStatus, reason), models.MemberClaimRef(claim.ID))
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.memberClaims.Execute(txCtx, claim.ID,
			func(c *models.Claim) error {
				return c.CanTransition(newStatus, reason)
			},
			func(c *models.Claim) {
				c.ApplyTransition(newStatus, reason, now)
				c.ApplyAmountOverride(amountOverride)
				c.AppendNote(note)
			},
		)
		if err != nil {
			return translateStoreErr(err, "claim not found")
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "member", err)
	}

	s.committed(ctx, StatusChange{
		Kind:    "member",
		ClaimID: updated.ID.String(),
		HMOID:   updated.HMOID,
		From:    from,
		To:      updated.Status,
		Reason:  reason,
		ActorID: principal.UserID,
		At:      updated.UpdatedAt,
	})
	return updated, nil
}

// UpdateProviderClaimStatus moves a provider claim to the requested status.
//
// Provider claims are mutated by back-office staff acting on behalf of the
// HMO, so the ownership gate runs between load and transition and
// short-circuits the whole mutation on failure.
func (s *Service) UpdateProviderClaimStatus(ctx context.Context, claimID id.ProviderClaimID, principal id.Principal, newStatus models.Status, reason string) (*models.ProviderClaim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.UpdateProviderClaimStatus")
	defer span.End()
	start := time.Now()
	defer s.observe("update_provider_claim_status", start)

	if err := principal.Validate(); err != nil {
		return nil, s.fail(span, "provider", err)
	}
	if claimID.IsZero() {
		return nil, s.fail(span, "provider", dErrors.New(dErrors.CodeBadRequest, "provider claim id is required"))
	}
	reason = strings.TrimSpace(reason)

	var (
		updated *models.ProviderClaim
		from    models.Status
	)
	err := s.tx.RunInTx(ctx, claimID.String(), func(txCtx context.Context) error {
		claim, err := s.providerClaims.FindByID(txCtx, claimID)
		if err != nil {
			return translateStoreErr(err, "provider claim not found")
		}
		from = claim.Status

		if err := s.authorizer.Authorize(txCtx, principal.UserID, claim.HMOID); err != nil {
			return err
		}

		if err := claim.CanTransition(newStatus, reason); err != nil {
			return err
		}

		note, err := s.ledger.Append(txCtx, principal.UserID, noteBody(newStatus, reason), models.ProviderClaimRef(claim.ID))
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.providerClaims.Execute(txCtx, claim.ID,
			func(c *models.ProviderClaim) error {
				return c.CanTransition(newStatus, reason)
			},
			func(c *models.ProviderClaim) {
				c.ApplyTransition(newStatus, reason, now)
				c.AppendNote(note)
			},
		)
		if err != nil {
			return translateStoreErr(err, "provider claim not found")
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "provider", err)
	}

	s.committed(ctx, StatusChange{
		Kind:    "provider",
		ClaimID: updated.ID.String(),
		HMOID:   updated.HMOID,
		From:    from,
		To:      updated.Status,
		Reason:  reason,
		ActorID: principal.UserID,
		At:      updated.UpdatedAt,
	})
	return updated, nil
}

// ApproveOrDeclineClaim is the treatment-claims review adapter. Unlike the
// general update path, it requires the claim to be exactly PENDING and fails
// InvalidState otherwise, before delegating to the same transition + note +
// persist sequence.
func (s *Service) ApproveOrDeclineClaim(ctx context.Context, claimID id.ClaimID, principal id.Principal, action Action, reason string, approvedAmount int64) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.ApproveOrDeclineClaim")
	defer span.End()
	start := time.Now()
	defer s.observe("approve_or_decline_claim", start)

	if err := principal.Validate(); err != nil {
		return nil, s.fail(span, "member", err)
	}
	if claimID.IsZero() {
		return nil, s.fail(span, "member", dErrors.New(dErrors.CodeBadRequest, "claim id is required"))
	}
	reason = strings.TrimSpace(reason)

	var newStatus models.Status
	switch action {
	case ActionApprove:
		newStatus = models.StatusApproved
	case ActionDecline:
		newStatus = models.StatusRejected
	default:
		return nil, s.fail(span, "member", dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", action))
	}

	var (
		updated *models.Claim
		from    models.Status
	)
	err := s.tx.RunInTx(ctx, claimID.String(), func(txCtx context.Context) error {
		claim, err := s.memberClaims.FindByID(txCtx, claimID)
		if err != nil {
			return translateStoreErr(err, "claim not found")
		}
		from = claim.Status

		if err := requirePending(claim.Status); err != nil {
			return err
		}
		if err := claim.CanTransition(newStatus, reason); err != nil {
			return err
		}

		note, err := s.ledger.Append(txCtx, principal.UserID, noteBody(newStatus, reason), models.MemberClaimRef(claim.ID))
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		updated, err = s.memberClaims.Execute(txCtx, claim.ID,
			func(c *models.Claim) error {
				if err := requirePending(c.Status); err != nil {
					return err
				}
				return c.CanTransition(newStatus, reason)
			},
			func(c *models.Claim) {
				c.ApplyTransition(newStatus, reason, now)
				c.ApplyAmountOverride(approvedAmount)
				c.AppendNote(note)
			},
		)
		if err != nil {
			return translateStoreErr(err, "claim not found")
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "member", err)
	}

	s.committed(ctx, StatusChange{
		Kind:    "member",
		ClaimID: updated.ID.String(),
		HMOID:   updated.HMOID,
		From:    from,
		To:      updated.Status,
		Reason:  reason,
		ActorID: principal.UserID,
		At:      updated.UpdatedAt,
	})
	return updated, nil
}

// GetMemberClaim loads a member claim scoped to its member and HMO.
func (s *Service) GetMemberClaim(ctx context.Context, query MemberClaimQuery) (*models.Claim, error) {
	if err := query.validate(); err != nil {
		return nil, err
	}
	claim, err := s.memberClaims.FindForMember(ctx, query.ClaimID, query.MemberID, query.HMOID)
	if err != nil {
		return nil, translateStoreErr(err, "claim not found")
	}
	return claim, nil
}

// GetProviderClaim loads a provider claim after the ownership gate passes.
func (s *Service) GetProviderClaim(ctx context.Context, claimID id.ProviderClaimID, principal id.Principal) (*models.ProviderClaim, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	claim, err := s.providerClaims.FindByID(ctx, claimID)
	if err != nil {
		return nil, translateStoreErr(err, "provider claim not found")
	}
	if err := s.authorizer.Authorize(ctx, principal.UserID, claim.HMOID); err != nil {
		return nil, err
	}
	return claim, nil
}

// ListProviderClaims pages through an HMO's provider claims, gate-checked.
func (s *Service) ListProviderClaims(ctx context.Context, hmoID id.HMOID, principal id.Principal, limit, offset int) ([]*models.ProviderClaim, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, principal.UserID, hmoID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	claims, err := s.providerClaims.ListByHMO(ctx, hmoID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list provider claims")
	}
	return claims, nil
}

// requirePending is the stricter precondition of the review adapter.
func requirePending(current models.Status) error {
	if current != models.StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "claim must be PENDING to review, is %s", current)
	}
	return nil
}

// noteBody is the annotation recorded with the transition. Rejections always
// carry the supplied reason (the state machine guarantees one); approvals
// without a reason get a standard body so the ledger never holds empty
// entries.
func noteBody(status models.Status, reason string) string {
	if reason != "" {
		return reason
	}
	return "claim " + strings.ToLower(string(status))
}

func translateStoreErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}

func (s *Service) committed(ctx context.Context, change StatusChange) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(change.Kind, string(change.To))
	}
	s.logger.InfoContext(ctx, "claim status changed",
		"kind", change.Kind,
		"claim_id", change.ClaimID,
		"from", change.From,
		"to", change.To,
		"actor_id", change.ActorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.notifier != nil {
		s.notifier.NotifyStatusChanged(ctx, change)
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

func (s *Service) fail(span trace.Span, kind string, err error) error {
	span.RecordError(err)
	if s.metrics != nil {
		s.metrics.IncrementFailure(kind, string(dErrors.CodeOf(err)))
	}
	return err
}
