package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"alapay/internal/hmo/models"
	id "alapay/pkg/domain"
	"alapay/pkg/platform/sentinel"
)

// Postgres loads HMO aggregates from PostgreSQL. The administrator set lives
// in hmo_administrators and is aggregated into the row in one round trip.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed HMO directory.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, hmoID id.HMOID) (*models.HMO, error) {
	query := `
		SELECT h.id, h.name, h.email, h.status, h.created_at, h.updated_at,
		       COALESCE(array_agg(a.user_id::text) FILTER (WHERE a.user_id IS NOT NULL), '{}')
		FROM hmos h
		LEFT JOIN hmo_administrators a ON a.hmo_id = h.id
		WHERE h.id = $1
		GROUP BY h.id
	`

	var (
		hmo      models.HMO
		rawID    string
		adminIDs pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, hmoID.String()).Scan(
		&rawID, &hmo.Name, &hmo.Email, &hmo.Status, &hmo.CreatedAt, &hmo.UpdatedAt, &adminIDs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find hmo: %w", err)
	}

	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse hmo id: %w", err)
	}
	hmo.ID = id.HMOID(parsed)

	hmo.AdministratorIDs = make([]id.UserID, 0, len(adminIDs))
	for _, raw := range adminIDs {
		adminID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse administrator id: %w", err)
		}
		hmo.AdministratorIDs = append(hmo.AdministratorIDs, id.UserID(adminID))
	}
	return &hmo, nil
}

// Save upserts the HMO row and replaces its administrator set. Used by seed
// and provisioning flows; claim mutation paths are read-only against HMOs.
func (s *Postgres) Save(ctx context.Context, hmo *models.HMO) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save hmo: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hmos (id, name, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, hmo.ID.String(), hmo.Name, hmo.Email, hmo.Status, hmo.CreatedAt, hmo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert hmo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hmo_administrators WHERE hmo_id = $1`, hmo.ID.String()); err != nil {
		return fmt.Errorf("clear hmo administrators: %w", err)
	}

	if len(hmo.AdministratorIDs) > 0 {
		adminIDs := make([]string, 0, len(hmo.AdministratorIDs))
		for _, adminID := range hmo.AdministratorIDs {
			adminIDs = append(adminIDs, adminID.String())
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO hmo_administrators (hmo_id, user_id)
			SELECT $1, unnest($2::uuid[])
		`, hmo.ID.String(), pq.Array(adminIDs))
		if err != nil {
			return fmt.Errorf("insert hmo administrators: %w", err)
		}
	}

	return tx.Commit()
}
