package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/metrics"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/repomanager"
)

// ledgerDocs lists the signable documents of each family.
var ledgerDocs = map[string][]string{
	"safe":   {"discount", "mfn", "valuation_cap", "pro_rata", "term_sheet"},
	"note":   {"discount", "valuation_cap", "mfn", "term_sheet"},
	"equity": {"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"},
}

// DocKey joins a family and a document name into the ledger key.
func DocKey(family, doc string) string {
	return family + "/" + doc
}

func knownDoc(family, doc string) bool {
	for _, d := range ledgerDocs[family] {
		if d == doc {
			return true
		}
	}
	return false
}

// LedgerService stores write-once signatures of a founder's documents.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Collector
	logger      logging.Logger
	now         func() time.Time
}

func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, collector *metrics.Collector, logger logging.Logger) *LedgerService {
	return &LedgerService{db: db, repomanager: m, metrics: collector, logger: logger, now: time.Now}
}

func (s *LedgerService) check(caller, owner, family, doc string) error {
	if caller == "" || caller != owner {
		return common.ErrorUnauthorized
	}
	if _, ok := ledgerDocs[family]; !ok {
		return fmt.Errorf("document family %q: %w", family, common.ErrorNotFound)
	}
	if !knownDoc(family, doc) {
		return fmt.Errorf("document %s: %w", DocKey(family, doc), common.ErrorNotFound)
	}
	return nil
}

// Get returns the stored signature or common.ErrorNotFound.
func (s *LedgerService) Get(ctx context.Context, caller, owner, family, doc string) (*models.SignaturePayload, error) {
	if err := s.check(caller, owner, family, doc); err != nil {
		return nil, err
	}
	return s.repomanager.Signatures(s.db).Get(ctx, owner, DocKey(family, doc))
}

// Sign records the signature once. A second attempt fails with
// common.ErrAlreadySigned and leaves the first untouched.
func (s *LedgerService) Sign(ctx context.Context, caller, owner, family, doc string, req models.SignRequest) (*models.SignaturePayload, error) {
	if err := s.check(caller, owner, family, doc); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := DocKey(family, doc)
	payload := models.NewSignaturePayload(req, s.now())
	if err := s.repomanager.Signatures(s.db).Sign(ctx, owner, key, payload); err != nil {
		return nil, err
	}

	s.metrics.Signed(family)
	s.logger.Info(ctx, "document signed", "uid", owner, "doc", key)
	return &payload, nil
}

// SignedDoc is one entry of the owner's signed documents.
type SignedDoc struct {
	Key string `json:"doc"`
	models.SignaturePayload
}

// List returns the owner's signed documents ordered by key.
func (s *LedgerService) List(ctx context.Context, caller, owner string) ([]SignedDoc, error) {
	if caller == "" || caller != owner {
		return nil, common.ErrorUnauthorized
	}
	all, err := s.repomanager.Signatures(s.db).List(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]SignedDoc, 0, len(all))
	for k, p := range all {
		out = append(out, SignedDoc{Key: k, SignaturePayload: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
