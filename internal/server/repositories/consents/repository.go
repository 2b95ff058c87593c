// Package consents persists board consent documents and their signers.
package consents

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

type Repository interface {
	// Ensure creates the consent document if it does not exist yet.
	Ensure(ctx context.Context, ownerUID, workflow string) error
	// Locked reports the lock flag; a missing document is unlocked.
	Locked(ctx context.Context, ownerUID, workflow string) (bool, error)
	SetLocked(ctx context.Context, ownerUID, workflow string, locked bool) error

	// UpsertInvite stores or re-issues the invitation of signer s, resetting
	// token_used. Returns common.ErrAlreadySigned if s has already signed and
	// common.ErrConflict if the id belongs to a signer of another role.
	UpsertInvite(ctx context.Context, ownerUID, workflow string, s *models.Signer) error
	// InsertSigned stores a signer that signs inline. Returns
	// common.ErrAlreadySigned if the entry exists.
	InsertSigned(ctx context.Context, ownerUID, workflow string, s *models.Signer) error
	// GetSigner returns common.ErrorNotFound for unknown ids. forUpdate locks
	// the row until the surrounding transaction ends.
	GetSigner(ctx context.Context, ownerUID, workflow, id string, forUpdate bool) (*models.Signer, error)
	// MarkSigned consumes the signer's token. Returns common.ErrTokenUsed if
	// it was consumed already.
	MarkSigned(ctx context.Context, ownerUID, workflow, id string, payload models.SignaturePayload) error
	ListSigners(ctx context.Context, ownerUID, workflow string) ([]models.Signer, error)
}
