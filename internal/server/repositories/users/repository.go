// Package users declares the account repository contract.
package users

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

type Repository interface {
	// Create inserts the account and fills its ID and CreatedAt. A duplicate
	// email yields common.ErrConflict.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
