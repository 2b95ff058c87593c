// Package termsheets stores the versioned term sheets of a deal. SAFE and
// Note variants live in separate tables with identical layout.
package termsheets

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

type Repository interface {
	// LockDeal takes a transaction-scoped advisory lock on the deal so that
	// concurrent offers serialize. Must run inside a transaction.
	LockDeal(ctx context.Context, dealID string) error
	// Current returns the highest version or common.ErrorNotFound.
	Current(ctx context.Context, dealID string) (*models.TermSheet, error)
	// Insert stores ts as given. A duplicate (deal_id, version) yields
	// common.ErrVersionConflict.
	Insert(ctx context.Context, ts *models.TermSheet) (*models.TermSheet, error)
	// LockLatest sets lock_termsheet on the highest version and returns it.
	LockLatest(ctx context.Context, dealID string) (*models.TermSheet, error)
	// History returns every version below the current one, newest first.
	History(ctx context.Context, dealID string) ([]models.TermSheet, error)
}
