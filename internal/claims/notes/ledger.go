// Package notes is the append-only ledger of claim annotations.
//
// A note is written in the same transaction as the status change it
// documents and is never edited or deleted afterwards. The ledger exposes no
// update or delete operation, even internally.
package notes

import (
	"context"

	"alapay/internal/claims/models"
	id "alapay/pkg/domain"
	dErrors "alapay/pkg/domain-errors"
	"alapay/pkg/requestcontext"
)

// Store is the insert-only persistence contract for notes.
type Store interface {
	Insert(ctx context.Context, note *models.Note) error
	ListByRef(ctx context.Context, ref models.ClaimRef) ([]*models.Note, error)
}

// Ledger appends and lists claim notes.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append validates, constructs and persists a note authored by the acting
// principal. The caller is responsible for running this inside the same
// transaction as the status change; a failed insert must abort the whole
// mutation.
func (l *Ledger) Append(ctx context.Context, authorID id.UserID, body string, ref models.ClaimRef) (*models.Note, error) {
	note, err := models.NewNote(authorID, body, ref, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := l.store.Insert(ctx, note); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist note")
	}
	return note, nil
}

// List returns the referenced claim's notes in insertion order.
func (l *Ledger) List(ctx context.Context, ref models.ClaimRef) ([]*models.Note, error) {
	notes, err := l.store.ListByRef(ctx, ref)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notes")
	}
	return notes, nil
}
