package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/config"
	"github.com/dmitrijs2005/dealflow/internal/server/mail"
	"github.com/dmitrijs2005/dealflow/internal/server/metrics"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/replay"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dealflow/internal/server/signtoken"
	"github.com/google/uuid"
)

// InviteRequest names the external signer to invite. An empty ID invites a
// new director.
type InviteRequest struct {
	ID       string `json:"directorId"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (r *InviteRequest) validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", common.ErrValidation)
	}
	if _, err := netmail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	return nil
}

// Invitation is returned to the document owner. The token itself only
// travels by mail.
type Invitation struct {
	SignerID  string    `json:"signer_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Mailed    bool      `json:"mailed"`
}

// ConsentService runs the board consent workflow for every configured
// financing type. Each workflow has its own token lifetime and lock rule.
type ConsentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *signtoken.Issuer
	guard       replay.Guard
	mailer      mail.Mailer
	metrics     *metrics.Collector
	logger      logging.Logger
	workflows   map[string]config.WorkflowConfig
	baseURL     string
	now         func() time.Time
}

func NewConsentService(db *sql.DB, m repomanager.RepositoryManager, issuer *signtoken.Issuer, guard replay.Guard,
	mailer mail.Mailer, collector *metrics.Collector, logger logging.Logger, cfg *config.Config) *ConsentService {
	return &ConsentService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		guard:       guard,
		mailer:      mailer,
		metrics:     collector,
		logger:      logger,
		workflows: map[string]config.WorkflowConfig{
			string(models.KindSAFE): cfg.SafeWorkflow,
			string(models.KindNote): cfg.NoteWorkflow,
		},
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     time.Now,
	}
}

func (s *ConsentService) workflow(wf string) (config.WorkflowConfig, error) {
	c, ok := s.workflows[wf]
	if !ok {
		return config.WorkflowConfig{}, fmt.Errorf("workflow %q: %w", wf, common.ErrorNotFound)
	}
	return c, nil
}

func (s *ConsentService) owned(caller, owner, wf string) (config.WorkflowConfig, error) {
	if caller == "" || caller != owner {
		return config.WorkflowConfig{}, common.ErrorUnauthorized
	}
	return s.workflow(wf)
}

func founderSignerID(owner string) string {
	return "founder-" + owner
}

// reservedSignerID reports whether id names a founder slot, which directors
// may never take.
func reservedSignerID(id string) bool {
	return strings.HasPrefix(id, "founder-") || strings.HasPrefix(id, "cofounder-")
}

// Get returns the consent document. A document nobody touched yet is empty
// and unlocked.
func (s *ConsentService) Get(ctx context.Context, caller, owner, wf string) (*models.ConsentDocument, error) {
	if _, err := s.owned(caller, owner, wf); err != nil {
		return nil, err
	}
	repo := s.repomanager.Consents(s.db)
	locked, err := repo.Locked(ctx, owner, wf)
	if err != nil {
		return nil, err
	}
	signers, err := repo.ListSigners(ctx, owner, wf)
	if err != nil {
		return nil, err
	}
	return &models.ConsentDocument{OwnerUID: owner, Workflow: wf, Locked: locked, Directors: signers}, nil
}

// Invite issues a director token and mails the sign link.
func (s *ConsentService) Invite(ctx context.Context, caller, owner, wf string, req InviteRequest) (*Invitation, error) {
	inv, _, err := s.invite(ctx, caller, owner, wf, req, nil)
	return inv, err
}

// InviteFounder issues a co-founder token for founder slot index.
func (s *ConsentService) InviteFounder(ctx context.Context, caller, owner, wf string, index int, req InviteRequest) (*Invitation, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: founder_index must not be negative", common.ErrValidation)
	}
	inv, _, err := s.invite(ctx, caller, owner, wf, req, &index)
	return inv, err
}

func (s *ConsentService) invite(ctx context.Context, caller, owner, wf string, req InviteRequest, founderIndex *int) (*Invitation, string, error) {
	cfg, err := s.owned(caller, owner, wf)
	if err != nil {
		return nil, "", err
	}
	if err := req.validate(); err != nil {
		return nil, "", err
	}

	var (
		claims signtoken.Claims
		signer = &models.Signer{FullName: strings.TrimSpace(req.FullName), Email: req.Email}
	)
	if founderIndex != nil {
		claims = signtoken.FounderClaims(wf, owner, *founderIndex)
		signer.ID = signtoken.CoFounderSignerID(*founderIndex)
		signer.Role = models.SignerRoleFounder
		signer.FounderIndex = founderIndex
	} else {
		if reservedSignerID(req.ID) {
			return nil, "", fmt.Errorf("%w: directorId %q is reserved", common.ErrValidation, req.ID)
		}
		signer.ID = req.ID
		if signer.ID == "" {
			signer.ID = uuid.NewString()
		}
		claims = signtoken.DirectorClaims(wf, owner, signer.ID)
		signer.Role = models.SignerRoleDirector
	}

	token, expires, err := s.issuer.Issue(claims, cfg.TTL)
	if err != nil {
		return nil, "", fmt.Errorf("error issuing sign token: %w", err)
	}
	invited := s.now().UTC()
	signer.TokenHash = signtoken.Hash(token)
	signer.TokenExpiresAt = &expires
	signer.InvitedAt = &invited

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Consents(tx)
		if err := repo.Ensure(ctx, owner, wf); err != nil {
			return err
		}
		if cfg.EnforceLockOnSign {
			locked, err := repo.Locked(ctx, owner, wf)
			if err != nil {
				return err
			}
			if locked {
				return common.ErrDocumentLocked
			}
		}
		return repo.UpsertInvite(ctx, owner, wf, signer)
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "signer invited", "uid", owner, "workflow", wf, "signer_id", signer.ID, "role", signer.Role)
	inv := &Invitation{SignerID: signer.ID, Email: signer.Email, ExpiresAt: expires}
	inv.Mailed = s.mailInvite(ctx, signer, wf, token, expires)
	return inv, token, nil
}

// mailInvite sends the sign link; failures are logged and reported as false.
func (s *ConsentService) mailInvite(ctx context.Context, signer *models.Signer, wf, token string, expires time.Time) bool {
	msg, err := mail.RenderInvite(mail.InviteData{
		SignerName: signer.FullName,
		Workflow:   strings.ToUpper(wf),
		Link:       s.baseURL + "/sign/" + token,
		ExpiresAt:  expires,
	})
	if err != nil {
		s.logger.Error(ctx, "invite: render failed", "error", err)
		return false
	}
	if err := s.mailer.SendMail(ctx, signer.Email, msg.Subject, msg.Text, msg.HTML); err != nil {
		s.logger.Warn(ctx, "invite: mail failed", "signer_id", signer.ID, "to", signer.Email, "error", err)
		return false
	}
	return true
}

// FounderSign records the owner's own signature inline.
func (s *ConsentService) FounderSign(ctx context.Context, caller, owner, wf string, req models.SignRequest) (*models.Signer, error) {
	cfg, err := s.owned(caller, owner, wf)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := models.NewSignaturePayload(req, s.now())
	signer := &models.Signer{
		ID:        founderSignerID(owner),
		Role:      models.SignerRoleFounder,
		FullName:  payload.SignerName,
		Signatory: &payload,
		SignedAt:  &payload.SignedAt,
		TokenUsed: true,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Consents(tx)
		if err := repo.Ensure(ctx, owner, wf); err != nil {
			return err
		}
		if cfg.EnforceLockOnSign {
			locked, err := repo.Locked(ctx, owner, wf)
			if err != nil {
				return err
			}
			if locked {
				return common.ErrDocumentLocked
			}
		}
		return repo.InsertSigned(ctx, owner, wf, signer)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Signed("consent_" + wf)
	s.logger.Info(ctx, "founder signed board consent", "uid", owner, "workflow", wf)
	return signer, nil
}

// Lock sets the lock flag of the whole document.
func (s *ConsentService) Lock(ctx context.Context, caller, owner, wf string, locked bool) error {
	if _, err := s.owned(caller, owner, wf); err != nil {
		return err
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Consents(tx)
		if err := repo.Ensure(ctx, owner, wf); err != nil {
			return err
		}
		return repo.SetLocked(ctx, owner, wf, locked)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "board consent lock changed", "uid", owner, "workflow", wf, "locked", locked)
	return nil
}

// verify checks the token and counts every rejection.
func (s *ConsentService) verify(ctx context.Context, token string) (*signtoken.Claims, config.WorkflowConfig, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		s.reject(ctx, err)
		return nil, config.WorkflowConfig{}, err
	}
	cfg, ok := s.workflows[claims.Workflow]
	if !ok {
		s.reject(ctx, common.ErrInvalidToken)
		return nil, config.WorkflowConfig{}, common.ErrInvalidToken
	}
	return claims, cfg, nil
}

func (s *ConsentService) reject(ctx context.Context, err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		reason = "expired"
	case errors.Is(err, common.ErrTokenUsed):
		reason = "used"
	case errors.Is(err, common.ErrDocumentLocked):
		reason = "locked"
	}
	s.metrics.TokenRejected(reason)
	s.logger.Warn(ctx, "sign token rejected", "reason", reason)
}

// Describe returns what the token's holder is about to sign without
// consuming the token.
func (s *ConsentService) Describe(ctx context.Context, token string) (*models.SignerView, error) {
	claims, _, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	owner, wf := claims.OwnerUID(), claims.Workflow
	repo := s.repomanager.Consents(s.db)

	signer, err := repo.GetSigner(ctx, owner, wf, claims.SignerID(), false)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.reject(ctx, common.ErrInvalidToken)
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if signer.TokenHash != signtoken.Hash(token) {
		s.reject(ctx, common.ErrInvalidToken)
		return nil, common.ErrInvalidToken
	}
	locked, err := repo.Locked(ctx, owner, wf)
	if err != nil {
		return nil, err
	}

	return &models.SignerView{
		OwnerUID:  owner,
		Workflow:  wf,
		SignerID:  signer.ID,
		Role:      signer.Role,
		FullName:  signer.FullName,
		Email:     signer.Email,
		Locked:    locked,
		Signed:    signer.Signatory != nil,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Sign consumes the token and stores the signatory. The token works once;
// any failure leaves the signer untouched.
func (s *ConsentService) Sign(ctx context.Context, token string, req models.SignRequest) (*models.SignaturePayload, error) {
	claims, cfg, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash := signtoken.Hash(token)
	claimed := false
	if s.guard != nil {
		ok, err := s.guard.Claim(ctx, hash, cfg.TTL)
		switch {
		case err != nil:
			// the row lock below still serializes signers
			s.logger.Warn(ctx, "replay guard unavailable", "error", err)
		case !ok:
			s.reject(ctx, common.ErrTokenUsed)
			return nil, common.ErrTokenUsed
		default:
			claimed = true
		}
	}

	owner, wf, id := claims.OwnerUID(), claims.Workflow, claims.SignerID()
	payload := models.NewSignaturePayload(req, s.now())
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Consents(tx)
		signer, err := repo.GetSigner(ctx, owner, wf, id, true)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		if signer.TokenHash != hash {
			return common.ErrInvalidToken
		}
		if signer.TokenUsed || signer.Signatory != nil {
			return common.ErrTokenUsed
		}
		if signer.TokenExpiresAt != nil && !s.now().Before(*signer.TokenExpiresAt) {
			return common.ErrTokenExpired
		}
		if cfg.EnforceLockOnSign {
			locked, err := repo.Locked(ctx, owner, wf)
			if err != nil {
				return err
			}
			if locked {
				return common.ErrDocumentLocked
			}
		}
		return repo.MarkSigned(ctx, owner, wf, id, payload)
	})
	if err != nil {
		if claimed {
			if rerr := s.guard.Release(ctx, hash); rerr != nil {
				s.logger.Warn(ctx, "replay guard release failed", "error", rerr)
			}
		}
		if isTokenRejection(err) {
			s.reject(ctx, err)
		}
		return nil, err
	}

	s.metrics.Signed("consent_" + wf)
	s.logger.Info(ctx, "board consent signed", "uid", owner, "workflow", wf, "signer_id", id)
	return &payload, nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenUsed) ||
		errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrDocumentLocked)
}
