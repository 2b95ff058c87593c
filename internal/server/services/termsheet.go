package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/export"
	"github.com/dmitrijs2005/dealflow/internal/server/mail"
	"github.com/dmitrijs2005/dealflow/internal/server/metrics"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
)

// TermSheetService negotiates versioned SAFE and Note term sheets on a deal.
//
// Every offer appends version max+1, unlocked. Accept locks the newest
// version in place; the counterparty of the offer accepts it. An offer after an accepted version opens a new round and
// notifies the counterparty.
type TermSheetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mail.Mailer
	metrics     *metrics.Collector
	logger      logging.Logger
}

func NewTermSheetService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer,
	collector *metrics.Collector, logger logging.Logger) *TermSheetService {
	return &TermSheetService{db: db, repomanager: m, mailer: mailer, metrics: collector, logger: logger}
}

func parseKind(kind string) (models.TermSheetKind, error) {
	k := models.TermSheetKind(kind)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown term sheet kind %q", common.ErrValidation, kind)
	}
	return k, nil
}

// participantDeal loads the deal and checks uid takes part in it.
func (s *TermSheetService) participantDeal(ctx context.Context, uid, dealID string) (*models.Deal, error) {
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

// Offer stores the next version of the deal's terms.
func (s *TermSheetService) Offer(ctx context.Context, uid, kind, dealID string, terms map[string]any) (*models.TermSheet, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	deal, err := s.participantDeal(ctx, uid, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status.Terminal() {
		return nil, fmt.Errorf("%w: deal is %s", common.ErrInvalidTransition, deal.Status)
	}
	normalized, err := ValidateTerms(k, terms)
	if err != nil {
		return nil, err
	}

	var (
		out      *models.TermSheet
		reopened bool
	)
	err = dbx.Retry(ctx, common.MaxInsertAttempts,
		func(err error) bool { return errors.Is(err, common.ErrVersionConflict) },
		func(ctx context.Context, attempt int) error {
			return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
				repo := s.repomanager.TermSheets(tx, k)
				if err := repo.LockDeal(ctx, dealID); err != nil {
					return err
				}

				next := 1
				reopened = false
				cur, err := repo.Current(ctx, dealID)
				switch {
				case err == nil:
					next = cur.Version + 1
					reopened = cur.Locked
				case !errors.Is(err, common.ErrorNotFound):
					return err
				}

				out, err = repo.Insert(ctx, &models.TermSheet{
					DealID:    dealID,
					Version:   next,
					Terms:     normalized,
					Locked:    false,
					OfferedBy: uid,
				})
				if errors.Is(err, common.ErrVersionConflict) {
					s.logger.Warn(ctx, "term sheet version conflict", "deal_id", dealID, "kind", string(k), "attempt", attempt)
				}
				return err
			})
		})
	if err != nil {
		return nil, err
	}

	s.metrics.Offer(string(k))
	s.logger.Info(ctx, "term sheet offered", "deal_id", dealID, "kind", string(k), "version", out.Version, "by", uid)

	if reopened {
		s.notifyReopened(ctx, deal, uid, out)
	}
	return out, nil
}

// notifyReopened mails the counterparty; failures are only logged.
func (s *TermSheetService) notifyReopened(ctx context.Context, deal *models.Deal, uid string, ts *models.TermSheet) {
	other, err := s.repomanager.Users(s.db).GetByID(ctx, deal.Counterparty(uid))
	if err != nil {
		s.logger.Warn(ctx, "terms reopened: counterparty lookup failed", "deal_id", deal.ID, "error", err)
		return
	}
	msg, err := mail.RenderTermsReopened(mail.ReopenedData{Kind: string(ts.Kind), DealID: deal.ID, Version: ts.Version})
	if err != nil {
		s.logger.Error(ctx, "terms reopened: render failed", "error", err)
		return
	}
	if err := s.mailer.SendMail(ctx, other.Email, msg.Subject, msg.Text, msg.HTML); err != nil {
		s.logger.Warn(ctx, "terms reopened: mail failed", "deal_id", deal.ID, "to", other.Email, "error", err)
	}
}

// Accept locks the newest version. Repeating it changes nothing. The party
// that offered an unlocked version cannot accept it, and nothing is accepted
// on a closed or canceled deal.
func (s *TermSheetService) Accept(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	deal, err := s.participantDeal(ctx, uid, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status.Terminal() {
		return nil, fmt.Errorf("%w: deal is %s", common.ErrInvalidTransition, deal.Status)
	}

	var ts *models.TermSheet
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.TermSheets(tx, k)
		if err := repo.LockDeal(ctx, dealID); err != nil {
			return err
		}
		cur, err := repo.Current(ctx, dealID)
		if err != nil {
			return err
		}
		if cur.Locked {
			ts = cur
			return nil
		}
		if cur.OfferedBy == uid {
			return fmt.Errorf("%w: version %d is the caller's own offer", common.ErrInvalidTransition, cur.Version)
		}
		ts, err = repo.LockLatest(ctx, dealID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Accept(string(k))
	s.logger.Info(ctx, "term sheet accepted", "deal_id", dealID, "kind", string(k), "version", ts.Version, "by", uid)
	return ts, nil
}

func (s *TermSheetService) Current(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantDeal(ctx, uid, dealID); err != nil {
		return nil, err
	}
	return s.repomanager.TermSheets(s.db, k).Current(ctx, dealID)
}

// History lists every superseded version, newest first.
func (s *TermSheetService) History(ctx context.Context, uid, kind, dealID string) ([]models.TermSheet, error) {
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.participantDeal(ctx, uid, dealID); err != nil {
		return nil, err
	}
	return s.repomanager.TermSheets(s.db, k).History(ctx, dealID)
}

// Export renders all versions, current first, as an XLSX workbook.
func (s *TermSheetService) Export(ctx context.Context, uid, kind, dealID string) ([]byte, error) {
	cur, err := s.Current(ctx, uid, kind, dealID)
	if err != nil {
		return nil, err
	}
	hist, err := s.History(ctx, uid, kind, dealID)
	if err != nil {
		return nil, err
	}
	return export.TermSheetHistoryXLSX(cur.Kind, append([]models.TermSheet{*cur}, hist...))
}
