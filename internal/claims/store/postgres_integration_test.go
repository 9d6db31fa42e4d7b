//go:build integration

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"alapay/internal/claims/models"
	id "alapay/pkg/domain"
	"alapay/pkg/platform/sentinel"
	"alapay/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	ctx       context.Context
	container *containers.PostgresContainer
	notes     *PostgresNotes
	claims    *PostgresClaims
	provider  *PostgresProviderClaims
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	schema, err := filepath.Abs("../../../migrations/0001_init.sql")
	s.Require().NoError(err)

	s.container = containers.NewPostgresContainer(s.T(), schema)
	s.notes = NewPostgresNotes(s.container.DB)
	s.claims = NewPostgresClaims(s.container.DB, s.notes)
	s.provider = NewPostgresProviderClaims(s.container.DB, s.notes)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.DB.Close()
		_ = s.container.Container.Terminate(s.ctx)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) seedClaim() *models.Claim {
	now := time.Now().UTC().Truncate(time.Microsecond)
	claim := &models.Claim{
		ID:          id.ClaimID(uuid.New()),
		MemberID:    id.MemberID(uuid.New()),
		HospitalID:  id.HospitalID(uuid.New()),
		HMOID:       id.HMOID(uuid.New()),
		Amount:      45000,
		Description: "outpatient consultation",
		ServiceDate: now.AddDate(0, 0, -7),
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.claims.Save(s.ctx, claim))
	return claim
}

func (s *PostgresStoreSuite) TestClaimRoundTrip() {
	claim := s.seedClaim()

	loaded, err := s.claims.FindForMember(s.ctx, claim.ID, claim.MemberID, claim.HMOID)
	s.Require().NoError(err)
	s.Equal(claim.ID, loaded.ID)
	s.Equal(claim.Amount, loaded.Amount)
	s.Equal(models.StatusPending, loaded.Status)
	s.Empty(loaded.Notes)
}

func (s *PostgresStoreSuite) TestScopedLookupMiss() {
	claim := s.seedClaim()

	_, err := s.claims.FindForMember(s.ctx, claim.ID, id.MemberID(uuid.New()), claim.HMOID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.claims.FindForMember(s.ctx, claim.ID, claim.MemberID, id.HMOID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecutePersistsMutation() {
	claim := s.seedClaim()
	now := time.Now().UTC().Truncate(time.Microsecond)

	updated, err := s.claims.Execute(s.ctx, claim.ID,
		func(c *models.Claim) error { return c.CanTransition(models.StatusRejected, "duplicate submission") },
		func(c *models.Claim) {
			c.ApplyTransition(models.StatusRejected, "duplicate submission", now)
		},
	)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, updated.Status)

	loaded, err := s.claims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, loaded.Status)
	s.Equal("duplicate submission", loaded.RejectionReason)
}

func (s *PostgresStoreSuite) TestNotesAttachToClaim() {
	claim := s.seedClaim()
	author := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	note, err := models.NewNote(author, "claim approved", models.MemberClaimRef(claim.ID), now)
	s.Require().NoError(err)
	s.Require().NoError(s.notes.Insert(s.ctx, note))

	loaded, err := s.claims.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(loaded.Notes, 1)
	s.Equal("claim approved", loaded.Notes[0].Body)
	s.Equal(author, loaded.Notes[0].AuthorID)
}

func (s *PostgresStoreSuite) TestNoteRequiresExactlyOneRef() {
	claim := s.seedClaim()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// Bypass the model constructor to verify the database CHECK constraint.
	_, err := s.container.DB.ExecContext(s.ctx, `
		INSERT INTO claim_notes (id, body, author_id, claim_id, provider_claim_id, created_at)
		VALUES ($1, $2, $3, NULL, NULL, $4)
	`, uuid.NewString(), "orphan", uuid.NewString(), now)
	s.Error(err, "a note with no claim reference must be rejected")

	providerID := uuid.New()
	_, err = s.container.DB.ExecContext(s.ctx, `
		INSERT INTO provider_claims (id, hmo_id, hospital_id, enrollee_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'ENR-1', 'PENDING', $4, $4)
	`, providerID.String(), uuid.NewString(), uuid.NewString(), now)
	s.Require().NoError(err)

	_, err = s.container.DB.ExecContext(s.ctx, `
		INSERT INTO claim_notes (id, body, author_id, claim_id, provider_claim_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), "both refs", uuid.NewString(), claim.ID.String(), providerID.String(), now)
	s.Error(err, "a note referencing both claim kinds must be rejected")
}

func (s *PostgresStoreSuite) TestProviderClaimRoundTrip() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	paymentID := uuid.New()
	claim := &models.ProviderClaim{
		ID:                id.ProviderClaimID(uuid.New()),
		HMOID:             id.HMOID(uuid.New()),
		HospitalID:        id.HospitalID(uuid.New()),
		EnrolleeNumber:    "ENR-0042",
		ReferenceCode:     "REF-2026-0042",
		Diagnosis:         "malaria",
		Services:          []models.ServiceItem{{Description: "consultation", Quantity: 2, UnitAmount: 5000}},
		DocumentURLs:      []string{"https://docs.example/a.pdf"},
		Status:            models.StatusPending,
		AuthorizationCode: "AUTH-9",
		PaymentID:         &paymentID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.Require().NoError(s.provider.Save(s.ctx, claim))

	loaded, err := s.provider.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(claim.EnrolleeNumber, loaded.EnrolleeNumber)
	s.Require().Len(loaded.Services, 1)
	s.Equal(int64(10000), loaded.TotalAmount())
	s.Equal([]string{"https://docs.example/a.pdf"}, loaded.DocumentURLs)
	s.Require().NotNil(loaded.PaymentID)
	s.Equal(paymentID, *loaded.PaymentID)
	s.Nil(loaded.PreauthRequestID)
}

func (s *PostgresStoreSuite) TestListByHMONewestFirst() {
	hmoID := id.HMOID(uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)

	var ids []id.ProviderClaimID
	for i := range 3 {
		claim := &models.ProviderClaim{
			ID:             id.ProviderClaimID(uuid.New()),
			HMOID:          hmoID,
			HospitalID:     id.HospitalID(uuid.New()),
			EnrolleeNumber: "ENR-1",
			Status:         models.StatusPending,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		s.Require().NoError(s.provider.Save(s.ctx, claim))
		ids = append(ids, claim.ID)
	}

	listed, err := s.provider.ListByHMO(s.ctx, hmoID, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(ids[2], listed[0].ID)
	s.Equal(ids[1], listed[1].ID)

	rest, err := s.provider.ListByHMO(s.ctx, hmoID, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal(ids[0], rest[0].ID)
}
