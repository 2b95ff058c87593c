// Package signatures stores write-once document signatures keyed by owner
// and document.
package signatures

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the document was never signed.
	Get(ctx context.Context, ownerUID, docKey string) (*models.SignaturePayload, error)
	// Sign stores payload unless the document is already signed, in which
	// case it returns common.ErrAlreadySigned.
	Sign(ctx context.Context, ownerUID, docKey string, payload models.SignaturePayload) error
	// List returns every signed document of the owner keyed by doc key.
	List(ctx context.Context, ownerUID string) (map[string]models.SignaturePayload, error)
}
