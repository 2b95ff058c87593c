// Package refreshtokens declares the repository for session refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

// Repository stores opaque refresh tokens issued at login.
type Repository interface {
	// Create stores token for accountID, expiring at now+validity.
	Create(ctx context.Context, accountID string, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is unknown.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error
}
