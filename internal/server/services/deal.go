package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var dealActions = map[string]models.DealStatus{
	"activate": models.DealActive,
	"accept":   models.DealAccepted,
	"close":    models.DealClosed,
	"cancel":   models.DealCanceled,
}

// DealService manages the deal registry: one deal per investor/startup pair
// moving forward through pending, active, accepted and closed.
type DealService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	// randomDealNo is swapped in tests to force collisions.
	randomDealNo func() (string, error)
}

func NewDealService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *DealService {
	return &DealService{
		db:          db,
		repomanager: m,
		logger:      logger,
		randomDealNo: func() (string, error) {
			return common.RandomDigits(common.DealNoLength)
		},
	}
}

func validateUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%w: %s must be a UUID", common.ErrValidation, field)
	}
	return nil
}

// Create opens a deal between the investor and a startup founder. Calling it
// again for the same pair returns the existing deal with created=false.
func (s *DealService) Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, bool, error) {
	if err := validateUUID("startup_uid", startupUID); err != nil {
		return nil, false, err
	}
	if investorUID == startupUID {
		return nil, false, fmt.Errorf("%w: investor and startup must differ", common.ErrValidation)
	}

	startup, err := s.repomanager.Users(s.db).GetByID(ctx, startupUID)
	if err != nil {
		return nil, false, err
	}
	if startup.Role != models.RoleFounder {
		return nil, false, fmt.Errorf("%w: startup_uid must reference a founder", common.ErrValidation)
	}

	repo := s.repomanager.Deals(s.db)
	if d, err := repo.GetByPair(ctx, investorUID, startupUID); err == nil {
		return d, false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	d, err := repo.Create(ctx, investorUID, startupUID)
	if errors.Is(err, common.ErrConflict) {
		// lost a race with a concurrent create for the same pair
		d, err = repo.GetByPair(ctx, investorUID, startupUID)
		return d, false, err
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info(ctx, "deal created", "deal_id", d.ID, "investor_uid", investorUID, "startup_uid", startupUID)
	return d, true, nil
}

// Get returns the deal if uid participates in it, common.ErrorUnauthorized
// otherwise.
func (s *DealService) Get(ctx context.Context, uid, dealID string) (*models.Deal, error) {
	if err := validateUUID("deal_id", dealID); err != nil {
		return nil, err
	}
	d, err := s.repomanager.Deals(s.db).GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !d.HasParticipant(uid) {
		return nil, common.ErrorUnauthorized
	}
	return d, nil
}

func (s *DealService) List(ctx context.Context, uid string) ([]models.Deal, error) {
	return s.repomanager.Deals(s.db).ListForAccount(ctx, uid)
}

// Transition applies action (activate, accept, close, cancel). Accepting an
// already accepted deal only makes sure it carries a deal number.
func (s *DealService) Transition(ctx context.Context, uid, dealID, action string) (*models.Deal, error) {
	next, ok := dealActions[action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", common.ErrValidation, action)
	}

	d, err := s.Get(ctx, uid, dealID)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Deals(s.db)
	switch {
	case d.Status == next && next == models.DealAccepted:
		// already accepted, only the deal number may be missing
	case d.Status.CanTransition(next):
		if d, err = repo.UpdateStatus(ctx, d.ID, d.Status, next); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "deal status changed", "deal_id", d.ID, "status", string(next), "by", uid)
	default:
		return nil, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, d.Status, next)
	}

	if next == models.DealAccepted && d.DealNo == nil {
		d, err = s.assignDealNo(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if d.Status != models.DealAccepted {
			// canceled between the status change and numbering
			return nil, fmt.Errorf("%w: deal is %s", common.ErrInvalidTransition, d.Status)
		}
	}
	return d, nil
}

// assignDealNo draws random numbers until one is free, at most
// common.MaxInsertAttempts times.
func (s *DealService) assignDealNo(ctx context.Context, dealID string) (*models.Deal, error) {
	repo := s.repomanager.Deals(s.db)

	var out *models.Deal
	err := dbx.Retry(ctx, common.MaxInsertAttempts,
		func(err error) bool { return errors.Is(err, common.ErrConflict) },
		func(ctx context.Context, attempt int) error {
			no, err := s.randomDealNo()
			if err != nil {
				return err
			}
			out, err = repo.AssignDealNo(ctx, dealID, no)
			if errors.Is(err, common.ErrConflict) {
				s.logger.Warn(ctx, "deal number collision", "deal_id", dealID, "attempt", attempt)
			}
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("error assigning deal number: %w", err)
	}
	return out, nil
}
