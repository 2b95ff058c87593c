// Package deals declares the deal registry repository.
package deals

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
)

type Repository interface {
	// Create inserts a pending deal. An existing investor/startup pair yields
	// common.ErrConflict.
	Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, error)
	GetByID(ctx context.Context, id string) (*models.Deal, error)
	GetByPair(ctx context.Context, investorUID, startupUID string) (*models.Deal, error)
	// ListForAccount returns deals where uid is investor or startup, newest first.
	ListForAccount(ctx context.Context, uid string) ([]models.Deal, error)
	// UpdateStatus moves the deal from one status to another. A deal that is
	// no longer in status from yields common.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from, to models.DealStatus) (*models.Deal, error)
	// AssignDealNo sets deal_no only while it is still NULL and the deal is
	// accepted. A number already taken by another deal yields
	// common.ErrConflict; any other deal is returned unchanged.
	AssignDealNo(ctx context.Context, id string, dealNo string) (*models.Deal, error)
}
