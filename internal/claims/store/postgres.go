package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"alapay/internal/claims/models"
	id "alapay/pkg/domain"
	"alapay/pkg/platform/sentinel"
	"alapay/pkg/platform/tx"
)

// querier is satisfied by both *sql.DB and *sql.Tx. Stores pick the
// transaction from context when one is present so the status write and the
// note insert commit together.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func pick(ctx context.Context, db *sql.DB) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return db
}

// PostgresClaims persists member claims in PostgreSQL.
type PostgresClaims struct {
	db    *sql.DB
	notes *PostgresNotes
}

// NewPostgresClaims constructs a PostgreSQL-backed member claim store.
func NewPostgresClaims(db *sql.DB, notes *PostgresNotes) *PostgresClaims {
	return &PostgresClaims{db: db, notes: notes}
}

const claimColumns = `id, member_id, hospital_id, hmo_id, amount, description, service_date, status, rejection_reason, created_at, updated_at`

func (s *PostgresClaims) Save(ctx context.Context, claim *models.Claim) error {
	q := pick(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, claim.ID.String(), claim.MemberID.String(), claim.HospitalID.String(), claim.HMOID.String(),
		claim.Amount, claim.Description, claim.ServiceDate, claim.Status,
		nullString(claim.RejectionReason), claim.CreatedAt, claim.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresClaims) FindForMember(ctx context.Context, claimID id.ClaimID, memberID id.MemberID, hmoID id.HMOID) (*models.Claim, error) {
	row := pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE id = $1 AND member_id = $2 AND hmo_id = $3
	`, claimID.String(), memberID.String(), hmoID.String())
	return s.scanClaim(ctx, row)
}

func (s *PostgresClaims) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE id = $1
	`, claimID.String())
	return s.scanClaim(ctx, row)
}

// Execute locks the claim row, re-validates, mutates, and writes the changed
// fields, all inside the transaction carried by ctx. Callers must run it
// through the service's StoreTx so a concurrent mutation of the same claim
// serializes on the row lock and the loser fails validation.
func (s *PostgresClaims) Execute(ctx context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error) {
	q := pick(ctx, s.db)

	row := q.QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE
	`, claimID.String())
	claim, err := s.scanClaim(ctx, row)
	if err != nil {
		return nil, err
	}

	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)

	_, err = q.ExecContext(ctx, `
		UPDATE claims
		SET amount = $2, status = $3, rejection_reason = $4, updated_at = $5
		WHERE id = $1
	`, claim.ID.String(), claim.Amount, claim.Status, nullString(claim.RejectionReason), claim.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}
	return claim, nil
}

func (s *PostgresClaims) scanClaim(ctx context.Context, row *sql.Row) (*models.Claim, error) {
	var (
		claim                            models.Claim
		rawID, rawMember, rawHosp, rawHMO string
		rejection                        sql.NullString
	)
	err := row.Scan(&rawID, &rawMember, &rawHosp, &rawHMO, &claim.Amount, &claim.Description,
		&claim.ServiceDate, &claim.Status, &rejection, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	ids, err := parseStoredIDs(rawID, rawMember, rawHosp, rawHMO)
	if err != nil {
		return nil, err
	}
	claim.ID = id.ClaimID(ids[0])
	claim.MemberID = id.MemberID(ids[1])
	claim.HospitalID = id.HospitalID(ids[2])
	claim.HMOID = id.HMOID(ids[3])
	claim.RejectionReason = rejection.String

	notes, err := s.notes.ListByRef(ctx, models.MemberClaimRef(claim.ID))
	if err != nil {
		return nil, err
	}
	claim.Notes = notes
	return &claim, nil
}

// PostgresProviderClaims persists provider claims in PostgreSQL. The service
// breakdown is stored as JSONB, supporting documents as a text array.
type PostgresProviderClaims struct {
	db    *sql.DB
	notes *PostgresNotes
}

func NewPostgresProviderClaims(db *sql.DB, notes *PostgresNotes) *PostgresProviderClaims {
	return &PostgresProviderClaims{db: db, notes: notes}
}

const providerClaimColumns = `id, hmo_id, hospital_id, enrollee_number, reference_code, diagnosis, services, document_urls, status, authorization_code, payment_id, preauth_request_id, rejection_reason, created_at, updated_at`

func (s *PostgresProviderClaims) Save(ctx context.Context, claim *models.ProviderClaim) error {
	services, err := json.Marshal(claim.Services)
	if err != nil {
		return fmt.Errorf("marshal services: %w", err)
	}
	_, err = pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO provider_claims (`+providerClaimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, claim.ID.String(), claim.HMOID.String(), claim.HospitalID.String(),
		claim.EnrolleeNumber, claim.ReferenceCode, claim.Diagnosis,
		services, pq.Array(claim.DocumentURLs), claim.Status,
		nullString(claim.AuthorizationCode), nullUUID(claim.PaymentID), nullUUID(claim.PreauthRequestID),
		nullString(claim.RejectionReason), claim.CreatedAt, claim.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert provider claim: %w", err)
	}
	return nil
}

func (s *PostgresProviderClaims) FindByID(ctx context.Context, claimID id.ProviderClaimID) (*models.ProviderClaim, error) {
	row := pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+providerClaimColumns+` FROM provider_claims WHERE id = $1
	`, claimID.String())
	return s.scanProviderClaim(ctx, row)
}

func (s *PostgresProviderClaims) ListByHMO(ctx context.Context, hmoID id.HMOID, limit, offset int) ([]*models.ProviderClaim, error) {
	rows, err := pick(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM provider_claims
		WHERE hmo_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, hmoID.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list provider claims: %w", err)
	}
	defer rows.Close()

	var ids []id.ProviderClaimID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan provider claim id: %w", err)
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse provider claim id: %w", err)
		}
		ids = append(ids, id.ProviderClaimID(parsed))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list provider claims: %w", err)
	}

	claims := make([]*models.ProviderClaim, 0, len(ids))
	for _, claimID := range ids {
		claim, err := s.FindByID(ctx, claimID)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// Execute mirrors PostgresClaims.Execute for provider claims.
func (s *PostgresProviderClaims) Execute(ctx context.Context, claimID id.ProviderClaimID, validate func(*models.ProviderClaim) error, mutate func(*models.ProviderClaim)) (*models.ProviderClaim, error) {
	q := pick(ctx, s.db)

	row := q.QueryRowContext(ctx, `
		SELECT `+providerClaimColumns+` FROM provider_claims WHERE id = $1 FOR UPDATE
	`, claimID.String())
	claim, err := s.scanProviderClaim(ctx, row)
	if err != nil {
		return nil, err
	}

	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)

	_, err = q.ExecContext(ctx, `
		UPDATE provider_claims
		SET status = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $1
	`, claim.ID.String(), claim.Status, nullString(claim.RejectionReason), claim.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update provider claim: %w", err)
	}
	return claim, nil
}

func (s *PostgresProviderClaims) scanProviderClaim(ctx context.Context, row *sql.Row) (*models.ProviderClaim, error) {
	var (
		claim                  models.ProviderClaim
		rawID, rawHMO, rawHosp string
		services               []byte
		docs                   pq.StringArray
		authCode, rejection    sql.NullString
		paymentID, preauthID   uuid.NullUUID
	)
	err := row.Scan(&rawID, &rawHMO, &rawHosp, &claim.EnrolleeNumber, &claim.ReferenceCode,
		&claim.Diagnosis, &services, &docs, &claim.Status, &authCode,
		&paymentID, &preauthID, &rejection, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan provider claim: %w", err)
	}

	ids, err := parseStoredIDs(rawID, rawHMO, rawHosp)
	if err != nil {
		return nil, err
	}
	claim.ID = id.ProviderClaimID(ids[0])
	claim.HMOID = id.HMOID(ids[1])
	claim.HospitalID = id.HospitalID(ids[2])

	if len(services) > 0 {
		if err := json.Unmarshal(services, &claim.Services); err != nil {
			return nil, fmt.Errorf("unmarshal services: %w", err)
		}
	}
	claim.DocumentURLs = docs
	claim.AuthorizationCode = authCode.String
	claim.RejectionReason = rejection.String
	if paymentID.Valid {
		claim.PaymentID = &paymentID.UUID
	}
	if preauthID.Valid {
		claim.PreauthRequestID = &preauthID.UUID
	}

	notes, err := s.notes.ListByRef(ctx, models.ProviderClaimRef(claim.ID))
	if err != nil {
		return nil, err
	}
	claim.Notes = notes
	return &claim, nil
}

// PostgresNotes is the insert-only note store. The table carries a CHECK
// constraint enforcing that exactly one of claim_id / provider_claim_id is
// set, matching the tagged-union invariant in the model.
type PostgresNotes struct {
	db *sql.DB
}

func NewPostgresNotes(db *sql.DB) *PostgresNotes {
	return &PostgresNotes{db: db}
}

func (s *PostgresNotes) Insert(ctx context.Context, note *models.Note) error {
	var claimID, providerClaimID any
	if cid, ok := note.Ref.MemberClaimID(); ok {
		claimID = cid.String()
	}
	if pid, ok := note.Ref.ProviderClaimID(); ok {
		providerClaimID = pid.String()
	}
	_, err := pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO claim_notes (id, body, author_id, claim_id, provider_claim_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, note.ID.String(), note.Body, note.AuthorID.String(), claimID, providerClaimID, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *PostgresNotes) ListByRef(ctx context.Context, ref models.ClaimRef) ([]*models.Note, error) {
	var (
		column string
		arg    string
	)
	if cid, ok := ref.MemberClaimID(); ok {
		column, arg = "claim_id", cid.String()
	} else if pid, ok := ref.ProviderClaimID(); ok {
		column, arg = "provider_claim_id", pid.String()
	} else {
		return nil, fmt.Errorf("claim ref is empty")
	}

	rows, err := pick(ctx, s.db).QueryContext(ctx, `
		SELECT id, body, author_id, created_at FROM claim_notes
		WHERE `+column+` = $1
		ORDER BY created_at, id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		var (
			note              models.Note
			rawID, rawAuthor  string
		)
		if err := rows.Scan(&rawID, &note.Body, &rawAuthor, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		ids, err := parseStoredIDs(rawID, rawAuthor)
		if err != nil {
			return nil, err
		}
		note.ID = id.NoteID(ids[0])
		note.AuthorID = id.UserID(ids[1])
		note.Ref = ref
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func parseStoredIDs(raw ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		parsed, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse stored id %q: %w", s, err)
		}
		out[i] = parsed
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(u *uuid.UUID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *u, Valid: true}
}
