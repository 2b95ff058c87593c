package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/dbx"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/consents"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/deals"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/termsheets"
	"github.com/dmitrijs2005/dealflow/internal/server/repositories/users"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newTxDB returns a real database that only serves BEGIN/COMMIT for
// services under test; repositories are in-memory fakes.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(16)
	t.Cleanup(func() { db.Close() })
	return db
}

type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	refresh  map[string]*models.RefreshToken
	deals    map[string]*models.Deal
	sheets   map[models.TermSheetKind]map[string][]models.TermSheet
	sigs     map[string]models.SignaturePayload
	locked   map[string]bool
	signers  map[string]map[string]*models.Signer

	// dealLocks maps kind/deal to the transaction holding its advisory lock.
	dealLocks map[string]*sql.Tx

	// versionConflicts makes the next N term-sheet inserts fail as if a
	// concurrent writer had taken the version.
	versionConflicts int
	// dealNoConflicts makes the next N deal number assignments collide.
	dealNoConflicts  int
	// afterDealRead runs after a deal was read, standing in for a
	// concurrent writer.
	afterDealRead    func(id string)
	insertAttempts   int
	createErr        error
	getErr           error
	refreshFindErr   error
	refreshDelErr    error
	refreshCreateErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		refresh:  map[string]*models.RefreshToken{},
		deals:    map[string]*models.Deal{},
		sheets:   map[models.TermSheetKind]map[string][]models.TermSheet{models.KindSAFE: {}, models.KindNote: {}},
		sigs:     map[string]models.SignaturePayload{},
		locked:   map[string]bool{},
		signers:  map[string]map[string]*models.Signer{},

		dealLocks: map[string]*sql.Tx{},
	}
}

func (m *memStore) addAccount(role, email string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &models.Account{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: time.Now()}
	m.accounts[a.ID] = a
	return a
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return &fakeUsers{f.s} }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &fakeRefresh{f.s}
}
func (f *fakeRepoManager) Deals(dbx.DBTX) deals.Repository { return &fakeDeals{f.s} }
func (f *fakeRepoManager) TermSheets(db dbx.DBTX, kind models.TermSheetKind) termsheets.Repository {
	tx, _ := db.(*sql.Tx)
	return &fakeSheets{s: f.s, kind: kind, tx: tx}
}
func (f *fakeRepoManager) Signatures(dbx.DBTX) signatures.Repository { return &fakeSigs{f.s} }
func (f *fakeRepoManager) Consents(dbx.DBTX) consents.Repository     { return &fakeConsents{f.s} }

// --- accounts ---

type fakeUsers struct{ s *memStore }

func (r *fakeUsers) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	for _, x := range r.s.accounts {
		if x.Email == a.Email {
			return nil, common.ErrConflict
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	cp := *a
	r.s.accounts[a.ID] = &cp
	return a, nil
}

func (r *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	for _, x := range r.s.accounts {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	if x, ok := r.s.accounts[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

// --- refresh tokens ---

type fakeRefresh struct{ s *memStore }

func (r *fakeRefresh) Create(ctx context.Context, accountID, token string, validity time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.refreshCreateErr != nil {
		return r.s.refreshCreateErr
	}
	r.s.refresh[token] = &models.RefreshToken{AccountID: accountID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.refreshFindErr != nil {
		return nil, r.s.refreshFindErr
	}
	if t, ok := r.s.refresh[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeRefresh) Delete(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.refreshDelErr != nil {
		return r.s.refreshDelErr
	}
	delete(r.s.refresh, token)
	return nil
}

// --- deals ---

type fakeDeals struct{ s *memStore }

func (r *fakeDeals) Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deals {
		if d.InvestorUID == investorUID && d.StartupUID == startupUID {
			return nil, common.ErrConflict
		}
	}
	now := time.Now()
	d := &models.Deal{ID: uuid.NewString(), InvestorUID: investorUID, StartupUID: startupUID,
		Status: models.DealPending, CreatedAt: now, UpdatedAt: now}
	r.s.deals[d.ID] = d
	cp := *d
	return &cp, nil
}

func (r *fakeDeals) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	r.s.mu.Lock()
	d, ok := r.s.deals[id]
	var cp models.Deal
	if ok {
		cp = *d
	}
	hook := r.s.afterDealRead
	r.s.mu.Unlock()

	if !ok {
		return nil, common.ErrorNotFound
	}
	if hook != nil {
		hook(id)
	}
	return &cp, nil
}

func (r *fakeDeals) GetByPair(ctx context.Context, investorUID, startupUID string) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deals {
		if d.InvestorUID == investorUID && d.StartupUID == startupUID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeDeals) ListForAccount(ctx context.Context, uid string) ([]models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Deal{}
	for _, d := range r.s.deals {
		if d.HasParticipant(uid) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeDeals) UpdateStatus(ctx context.Context, id string, from, to models.DealStatus) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deals[id]
	if !ok || d.Status != from {
		return nil, common.ErrInvalidTransition
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	cp := *d
	return &cp, nil
}

func (r *fakeDeals) AssignDealNo(ctx context.Context, id, dealNo string) (*models.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deals[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if d.DealNo != nil || d.Status != models.DealAccepted {
		cp := *d
		return &cp, nil
	}
	if r.s.dealNoConflicts > 0 {
		r.s.dealNoConflicts--
		return nil, common.ErrConflict
	}
	no := dealNo
	d.DealNo = &no
	cp := *d
	return &cp, nil
}

// --- term sheets ---

// fakeSheets mimics pg_advisory_xact_lock: LockDeal blocks until no other
// live transaction holds the deal, and reads or writes inside a transaction
// fail unless that transaction took the lock first.
type fakeSheets struct {
	s    *memStore
	kind models.TermSheetKind
	tx   *sql.Tx
}

func (r *fakeSheets) lockKey(dealID string) string { return string(r.kind) + "/" + dealID }

// txDone reports whether tx has been committed or rolled back.
func txDone(tx *sql.Tx) bool {
	_, err := tx.ExecContext(context.Background(), "SELECT 1")
	return err != nil
}

func (r *fakeSheets) LockDeal(ctx context.Context, dealID string) error {
	if r.tx == nil {
		return fmt.Errorf("LockDeal outside a transaction")
	}
	key := r.lockKey(dealID)
	for {
		r.s.mu.Lock()
		owner := r.s.dealLocks[key]
		if owner == nil || owner == r.tx || txDone(owner) {
			r.s.dealLocks[key] = r.tx
			r.s.mu.Unlock()
			return nil
		}
		r.s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// checkLocked must be called with r.s.mu held.
func (r *fakeSheets) checkLocked(dealID string) error {
	if r.tx != nil && r.s.dealLocks[r.lockKey(dealID)] != r.tx {
		return fmt.Errorf("deal %s touched before LockDeal", dealID)
	}
	return nil
}

func (r *fakeSheets) Current(ctx context.Context, dealID string) (*models.TermSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkLocked(dealID); err != nil {
		return nil, err
	}
	list := r.s.sheets[r.kind][dealID]
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	cp := list[len(list)-1]
	return &cp, nil
}

func (r *fakeSheets) Insert(ctx context.Context, ts *models.TermSheet) (*models.TermSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkLocked(ts.DealID); err != nil {
		return nil, err
	}
	r.s.insertAttempts++
	if r.s.versionConflicts > 0 {
		r.s.versionConflicts--
		return nil, common.ErrVersionConflict
	}
	list := r.s.sheets[r.kind][ts.DealID]
	for _, x := range list {
		if x.Version == ts.Version {
			return nil, common.ErrVersionConflict
		}
	}
	out := *ts
	out.Kind = r.kind
	out.CreatedAt = time.Now()
	r.s.sheets[r.kind][ts.DealID] = append(list, out)
	return &out, nil
}

func (r *fakeSheets) LockLatest(ctx context.Context, dealID string) (*models.TermSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkLocked(dealID); err != nil {
		return nil, err
	}
	list := r.s.sheets[r.kind][dealID]
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	list[len(list)-1].Locked = true
	cp := list[len(list)-1]
	return &cp, nil
}

func (r *fakeSheets) History(ctx context.Context, dealID string) ([]models.TermSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.sheets[r.kind][dealID]
	out := []models.TermSheet{}
	for i := len(list) - 2; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// --- signatures ---

type fakeSigs struct{ s *memStore }

func (r *fakeSigs) Get(ctx context.Context, ownerUID, docKey string) (*models.SignaturePayload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.sigs[ownerUID+"|"+docKey]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *fakeSigs) Sign(ctx context.Context, ownerUID, docKey string, payload models.SignaturePayload) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := ownerUID + "|" + docKey
	if _, ok := r.s.sigs[k]; ok {
		return common.ErrAlreadySigned
	}
	r.s.sigs[k] = payload
	return nil
}

func (r *fakeSigs) List(ctx context.Context, ownerUID string) (map[string]models.SignaturePayload, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]models.SignaturePayload{}
	prefix := ownerUID + "|"
	for k, v := range r.s.sigs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	return out, nil
}

// --- board consents ---

type fakeConsents struct{ s *memStore }

func consentKey(owner, wf string) string { return owner + "|" + wf }

func (r *fakeConsents) Ensure(ctx context.Context, ownerUID, workflow string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := consentKey(ownerUID, workflow)
	if _, ok := r.s.locked[k]; !ok {
		r.s.locked[k] = false
	}
	if r.s.signers[k] == nil {
		r.s.signers[k] = map[string]*models.Signer{}
	}
	return nil
}

func (r *fakeConsents) Locked(ctx context.Context, ownerUID, workflow string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.locked[consentKey(ownerUID, workflow)], nil
}

func (r *fakeConsents) SetLocked(ctx context.Context, ownerUID, workflow string, locked bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locked[consentKey(ownerUID, workflow)] = locked
	return nil
}

func (r *fakeConsents) UpsertInvite(ctx context.Context, ownerUID, workflow string, s *models.Signer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.signers[consentKey(ownerUID, workflow)]
	if existing, ok := m[s.ID]; ok {
		if existing.Role != s.Role {
			return common.ErrConflict
		}
		if existing.Signatory != nil {
			return common.ErrAlreadySigned
		}
	}
	cp := *s
	cp.TokenUsed = false
	m[s.ID] = &cp
	return nil
}

func (r *fakeConsents) InsertSigned(ctx context.Context, ownerUID, workflow string, s *models.Signer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.signers[consentKey(ownerUID, workflow)]
	if _, ok := m[s.ID]; ok {
		return common.ErrAlreadySigned
	}
	cp := *s
	cp.TokenUsed = true
	m[s.ID] = &cp
	return nil
}

func (r *fakeConsents) GetSigner(ctx context.Context, ownerUID, workflow, id string, forUpdate bool) (*models.Signer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.signers[consentKey(ownerUID, workflow)][id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeConsents) MarkSigned(ctx context.Context, ownerUID, workflow, id string, payload models.SignaturePayload) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.signers[consentKey(ownerUID, workflow)][id]
	if !ok || s.TokenUsed {
		return common.ErrTokenUsed
	}
	p := payload
	at := payload.SignedAt
	s.Signatory = &p
	s.SignedAt = &at
	s.TokenUsed = true
	return nil
}

func (r *fakeConsents) ListSigners(ctx context.Context, ownerUID, workflow string) ([]models.Signer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Signer{}
	for _, s := range r.s.signers[consentKey(ownerUID, workflow)] {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- mail ---

type sentMail struct {
	To, Subject, Text string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendMail(ctx context.Context, to, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
