package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"alapay/internal/claims/models"
	"alapay/internal/claims/notes"
	claimstore "alapay/internal/claims/store"
	hmomodels "alapay/internal/hmo/models"
	hmoservice "alapay/internal/hmo/service"
	hmostore "alapay/internal/hmo/store"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/requestcontext"
)

type recordingNotifier struct {
	changes []StatusChange
}

func (n *recordingNotifier) NotifyStatusChanged(_ context.Context, change StatusChange) {
	n.changes = append(n.changes, change)
}

type ClaimServiceSuite struct {
	suite.Suite

	ctx            context.Context
	now            time.Time
	memberClaims   *claimstore.InMemoryClaims
	providerClaims *claimstore.InMemoryProviderClaims
	noteStore      *claimstore.InMemoryNotes
	hmos           *hmostore.InMemory
	notifier       *recordingNotifier
	service        *Service

	admin    id.Principal
	outsider id.Principal
	hmoID    id.HMOID
	otherHMO id.HMOID
	memberID id.MemberID
}

func TestClaimServiceSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceSuite))
}

func (s *ClaimServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.memberClaims = claimstore.NewInMemoryClaims()
	s.providerClaims = claimstore.NewInMemoryProviderClaims()
	s.noteStore = claimstore.NewInMemoryNotes()
	s.hmos = hmostore.NewInMemory()
	s.notifier = &recordingNotifier{}

	s.admin = id.Principal{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	s.outsider = id.Principal{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	s.hmoID = id.HMOID(uuid.New())
	s.otherHMO = id.HMOID(uuid.New())
	s.memberID = id.MemberID(uuid.New())

	s.Require().NoError(s.hmos.Save(s.ctx, &hmomodels.HMO{
		ID:               s.hmoID,
		Name:             "Sterling Health",
		Status:           hmomodels.HMOStatusActive,
		AdministratorIDs: []id.UserID{s.admin.UserID},
	}))
	s.Require().NoError(s.hmos.Save(s.ctx, &hmomodels.HMO{
		ID:     s.otherHMO,
		Name:   "Crescent Care",
		Status: hmomodels.HMOStatusActive,
	}))

	gate := hmoservice.NewGate(s.hmos)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.memberClaims, s.providerClaims, notes.NewLedger(s.noteStore), gate,
		WithNotifier(s.notifier),
		WithLogger(logger),
	)
}

func (s *ClaimServiceSuite) seedMemberClaim(status models.Status, amount int64) *models.Claim {
	claim := &models.Claim{
		ID:          id.ClaimID(uuid.New()),
		MemberID:    s.memberID,
		HospitalID:  id.HospitalID(uuid.New()),
		HMOID:       s.hmoID,
		Amount:      amount,
		Description: "outpatient consultation",
		ServiceDate: s.now.AddDate(0, 0, -7),
		Status:      status,
		CreatedAt:   s.now.AddDate(0, 0, -5),
		UpdatedAt:   s.now.AddDate(0, 0, -5),
	}
	s.Require().NoError(s.memberClaims.Save(s.ctx, claim))
	return claim
}

func (s *ClaimServiceSuite) seedProviderClaim(hmoID id.HMOID, status models.Status) *models.ProviderClaim {
	claim := &models.ProviderClaim{
		ID:             id.ProviderClaimID(uuid.New()),
		HMOID:          hmoID,
		HospitalID:     id.HospitalID(uuid.New()),
		EnrolleeNumber: "ENR-0042",
		ReferenceCode:  "REF-2026-0042",
		Diagnosis:      "malaria",
		Services:       []models.ServiceItem{{Description: "consultation", Quantity: 1, UnitAmount: 15000}},
		Status:         status,
		CreatedAt:      s.now.AddDate(0, 0, -3),
		UpdatedAt:      s.now.AddDate(0, 0, -3),
	}
	s.Require().NoError(s.providerClaims.Save(s.ctx, claim))
	return claim
}

func (s *ClaimServiceSuite) memberQuery(claim *models.Claim) MemberClaimQuery {
	return MemberClaimQuery{ClaimID: claim.ID, MemberID: claim.MemberID, HMOID: claim.HMOID}
}

func (s *ClaimServiceSuite) memberNotes(claimID id.ClaimID) []*models.Note {
	out, err := s.noteStore.ListByRef(s.ctx, models.MemberClaimRef(claimID))
	s.Require().NoError(err)
	return out
}

func (s *ClaimServiceSuite) providerNotes(claimID id.ProviderClaimID) []*models.Note {
	out, err := s.noteStore.ListByRef(s.ctx, models.ProviderClaimRef(claimID))
	s.Require().NoError(err)
	return out
}

func (s *ClaimServiceSuite) TestRejectMemberClaimWithReason() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	updated, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), s.admin, models.StatusRejected, "procedure not covered by plan", 0)
	s.Require().NoError(err)

	s.Equal(models.StatusRejected, updated.Status)
	s.Equal("procedure not covered by plan", updated.RejectionReason)
	s.Equal(int64(45000), updated.Amount)
	s.Equal(s.now, updated.UpdatedAt)

	recorded := s.memberNotes(claim.ID)
	s.Require().Len(recorded, 1)
	s.Equal("procedure not covered by plan", recorded[0].Body)
	s.Equal(s.admin.UserID, recorded[0].AuthorID)

	s.Require().Len(s.notifier.changes, 1)
	change := s.notifier.changes[0]
	s.Equal("member", change.Kind)
	s.Equal(models.StatusPending, change.From)
	s.Equal(models.StatusRejected, change.To)
	s.Equal(s.admin.UserID, change.ActorID)
}

func (s *ClaimServiceSuite) TestApproveMemberClaimWithAmountOverride() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	updated, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), s.admin, models.StatusApproved, "", 40000)
	s.Require().NoError(err)

	s.Equal(models.StatusApproved, updated.Status)
	s.Equal(int64(40000), updated.Amount)
	s.Empty(updated.RejectionReason)

	recorded := s.memberNotes(claim.ID)
	s.Require().Len(recorded, 1)
	s.Equal("claim approved", recorded[0].Body)
}

func (s *ClaimServiceSuite) TestRejectWithoutReasonLeavesClaimUntouched() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	_, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), s.admin, models.StatusRejected, "", 0)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeMissingReason))

	stored, err := s.memberClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
	s.Empty(s.memberNotes(claim.ID), "failed transition must not write a note")
	s.Empty(s.notifier.changes)
}

func (s *ClaimServiceSuite) TestPaidMemberClaimIsLocked() {
	claim := s.seedMemberClaim(models.StatusPaid, 45000)

	_, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), s.admin, models.StatusRejected, "chargeback", 0)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeLocked))

	stored, err := s.memberClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPaid, stored.Status)
	s.Empty(stored.RejectionReason)
	s.Empty(s.memberNotes(claim.ID))
}

func (s *ClaimServiceSuite) TestFailedAttemptsAreRepeatable() {
	claim := s.seedMemberClaim(models.StatusApproved, 45000)

	for range 3 {
		_, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), s.admin, models.StatusRejected, "second thoughts", 0)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidTransition))
	}

	stored, err := s.memberClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)
	s.Empty(s.memberNotes(claim.ID), "repeated failures must not accumulate notes")
}

func (s *ClaimServiceSuite) TestScopedLookupMissIsNotFound() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	wrongMember := MemberClaimQuery{ClaimID: claim.ID, MemberID: id.MemberID(uuid.New()), HMOID: claim.HMOID}
	_, err := s.service.UpdateMemberClaimStatus(s.ctx, wrongMember, s.admin, models.StatusApproved, "", 0)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	wrongHMO := MemberClaimQuery{ClaimID: claim.ID, MemberID: claim.MemberID, HMOID: s.otherHMO}
	_, err = s.service.UpdateMemberClaimStatus(s.ctx, wrongHMO, s.admin, models.StatusApproved, "", 0)
	s.True(dErrors.Is(err, dErrors.CodeNotFound), "cross-tenant access must look like a missing claim, not a forbidden one")

	stored, err := s.memberClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ClaimServiceSuite) TestApproveProviderClaimAsAdministrator() {
	claim := s.seedProviderClaim(s.hmoID, models.StatusPending)

	updated, err := s.service.UpdateProviderClaimStatus(s.ctx, claim.ID, s.admin, models.StatusApproved, "")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)

	recorded := s.providerNotes(claim.ID)
	s.Require().Len(recorded, 1)
	s.Equal("claim approved", recorded[0].Body)

	s.Require().Len(s.notifier.changes, 1)
	s.Equal("provider", s.notifier.changes[0].Kind)
}

func (s *ClaimServiceSuite) TestProviderClaimMutationByNonAdministratorIsForbidden() {
	claim := s.seedProviderClaim(s.hmoID, models.StatusPending)

	_, err := s.service.UpdateProviderClaimStatus(s.ctx, claim.ID, s.outsider, models.StatusApproved, "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))

	stored, err := s.providerClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status, "denied mutation must leave the claim untouched")
	s.Empty(s.providerNotes(claim.ID))
	s.Empty(s.notifier.changes)
}

func (s *ClaimServiceSuite) TestProviderClaimUnderEmptyAdminSetDeniesEveryone() {
	claim := s.seedProviderClaim(s.otherHMO, models.StatusPending)

	for _, principal := range []id.Principal{s.admin, s.outsider} {
		_, err := s.service.UpdateProviderClaimStatus(s.ctx, claim.ID, principal, models.StatusApproved, "")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	}
}

func (s *ClaimServiceSuite) TestApprovedProviderClaimIsLocked() {
	claim := s.seedProviderClaim(s.hmoID, models.StatusPending)

	_, err := s.service.UpdateProviderClaimStatus(s.ctx, claim.ID, s.admin, models.StatusApproved, "")
	s.Require().NoError(err)

	_, err = s.service.UpdateProviderClaimStatus(s.ctx, claim.ID, s.admin, models.StatusRejected, "clerical error")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeLocked))

	stored, err := s.providerClaims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)
	s.Len(s.providerNotes(claim.ID), 1, "only the successful transition leaves a note")
}

func (s *ClaimServiceSuite) TestEveryTransitionAddsExactlyOneNote() {
	first := s.seedMemberClaim(models.StatusPending, 20000)
	second := s.seedMemberClaim(models.StatusPending, 30000)

	_, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(first), s.admin, models.StatusApproved, "", 0)
	s.Require().NoError(err)
	_, err = s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(second), s.admin, models.StatusRejected, "duplicate submission", 0)
	s.Require().NoError(err)

	s.Len(s.memberNotes(first.ID), 1)
	s.Len(s.memberNotes(second.ID), 1)
}

func (s *ClaimServiceSuite) TestReviewDeclineRequiresReason() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	_, err := s.service.ApproveOrDeclineClaim(s.ctx, claim.ID, s.admin, ActionDecline, "", 0)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeMissingReason))
}

func (s *ClaimServiceSuite) TestReviewApproveWithApprovedAmount() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	updated, err := s.service.ApproveOrDeclineClaim(s.ctx, claim.ID, s.admin, ActionApprove, "", 40000)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)
	s.Equal(int64(40000), updated.Amount)
}

func (s *ClaimServiceSuite) TestReviewRejectsNonPendingClaim() {
	for _, status := range []models.Status{models.StatusApproved, models.StatusRejected, models.StatusPaid} {
		claim := s.seedMemberClaim(status, 45000)

		_, err := s.service.ApproveOrDeclineClaim(s.ctx, claim.ID, s.admin, ActionDecline, "incomplete documents", 0)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState), "claim in %s must fail review with InvalidState, got %v", status, err)
	}
}

func (s *ClaimServiceSuite) TestReviewUnknownAction() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	_, err := s.service.ApproveOrDeclineClaim(s.ctx, claim.ID, s.admin, Action("escalate"), "", 0)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ClaimServiceSuite) TestPrincipalWithoutIdentityIsUnauthorized() {
	claim := s.seedMemberClaim(models.StatusPending, 45000)

	_, err := s.service.UpdateMemberClaimStatus(s.ctx, s.memberQuery(claim), id.Principal{}, models.StatusApproved, "", 0)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *ClaimServiceSuite) TestGetProviderClaimIsGateChecked() {
	claim := s.seedProviderClaim(s.hmoID, models.StatusPending)

	loaded, err := s.service.GetProviderClaim(s.ctx, claim.ID, s.admin)
	s.Require().NoError(err)
	s.Equal(claim.ID, loaded.ID)

	_, err = s.service.GetProviderClaim(s.ctx, claim.ID, s.outsider)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *ClaimServiceSuite) TestListProviderClaimsNewestFirst() {
	oldest := s.seedProviderClaim(s.hmoID, models.StatusPending)
	newest := &models.ProviderClaim{
		ID:             id.ProviderClaimID(uuid.New()),
		HMOID:          s.hmoID,
		HospitalID:     id.HospitalID(uuid.New()),
		EnrolleeNumber: "ENR-0043",
		Status:         models.StatusPending,
		CreatedAt:      s.now.AddDate(0, 0, -1),
		UpdatedAt:      s.now.AddDate(0, 0, -1),
	}
	s.Require().NoError(s.providerClaims.Save(s.ctx, newest))

	listed, err := s.service.ListProviderClaims(s.ctx, s.hmoID, s.admin, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(newest.ID, listed[0].ID)
	s.Equal(oldest.ID, listed[1].ID)

	_, err = s.service.ListProviderClaims(s.ctx, s.hmoID, s.outsider, 10, 0)
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *ClaimServiceSuite) TestUnknownProviderClaimIsNotFound() {
	_, err := s.service.UpdateProviderClaimStatus(s.ctx, id.ProviderClaimID(uuid.New()), s.admin, models.StatusApproved, "")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
