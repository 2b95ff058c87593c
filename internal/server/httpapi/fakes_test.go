package httpapi

import (
	"context"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/services"
)

type call struct {
	caller, owner, kind, id, action string
	terms                           map[string]any
	sign                            models.SignRequest
	invite                          services.InviteRequest
	index                           int
	locked                          bool
}

type fakeUsers struct {
	account *models.Account
	pair    *services.TokenPair
	err     error
	last    call
}

func (f *fakeUsers) Register(ctx context.Context, email, password, role string) (*models.Account, error) {
	f.last = call{owner: email, kind: role}
	return f.account, f.err
}
func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.pair, f.err
}
func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.last = call{id: refreshToken}
	return f.pair, f.err
}

type fakeDeals struct {
	deal    *models.Deal
	list    []models.Deal
	created bool
	err     error
	last    call
}

func (f *fakeDeals) Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, bool, error) {
	f.last = call{caller: investorUID, id: startupUID}
	return f.deal, f.created, f.err
}
func (f *fakeDeals) Get(ctx context.Context, uid, dealID string) (*models.Deal, error) {
	f.last = call{caller: uid, id: dealID}
	return f.deal, f.err
}
func (f *fakeDeals) List(ctx context.Context, uid string) ([]models.Deal, error) {
	f.last = call{caller: uid}
	return f.list, f.err
}
func (f *fakeDeals) Transition(ctx context.Context, uid, dealID, action string) (*models.Deal, error) {
	f.last = call{caller: uid, id: dealID, action: action}
	return f.deal, f.err
}

type fakeTermSheets struct {
	sheet *models.TermSheet
	list  []models.TermSheet
	xlsx  []byte
	err   error
	last  call
}

func (f *fakeTermSheets) Offer(ctx context.Context, uid, kind, dealID string, terms map[string]any) (*models.TermSheet, error) {
	f.last = call{caller: uid, kind: kind, id: dealID, terms: terms}
	return f.sheet, f.err
}
func (f *fakeTermSheets) Accept(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error) {
	f.last = call{caller: uid, kind: kind, id: dealID}
	return f.sheet, f.err
}
func (f *fakeTermSheets) Current(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error) {
	f.last = call{caller: uid, kind: kind, id: dealID}
	return f.sheet, f.err
}
func (f *fakeTermSheets) History(ctx context.Context, uid, kind, dealID string) ([]models.TermSheet, error) {
	f.last = call{caller: uid, kind: kind, id: dealID}
	return f.list, f.err
}
func (f *fakeTermSheets) Export(ctx context.Context, uid, kind, dealID string) ([]byte, error) {
	f.last = call{caller: uid, kind: kind, id: dealID}
	return f.xlsx, f.err
}

type fakeLedger struct {
	payload *models.SignaturePayload
	list    []services.SignedDoc
	err     error
	last    call
}

func (f *fakeLedger) Get(ctx context.Context, caller, owner, family, doc string) (*models.SignaturePayload, error) {
	f.last = call{caller: caller, owner: owner, kind: family, id: doc}
	return f.payload, f.err
}
func (f *fakeLedger) Sign(ctx context.Context, caller, owner, family, doc string, req models.SignRequest) (*models.SignaturePayload, error) {
	f.last = call{caller: caller, owner: owner, kind: family, id: doc, sign: req}
	return f.payload, f.err
}
func (f *fakeLedger) List(ctx context.Context, caller, owner string) ([]services.SignedDoc, error) {
	f.last = call{caller: caller, owner: owner}
	return f.list, f.err
}

type fakeConsents struct {
	doc        *models.ConsentDocument
	invitation *services.Invitation
	signer     *models.Signer
	view       *models.SignerView
	payload    *models.SignaturePayload
	err        error
	last       call
}

func (f *fakeConsents) Get(ctx context.Context, caller, owner, wf string) (*models.ConsentDocument, error) {
	f.last = call{caller: caller, owner: owner, kind: wf}
	return f.doc, f.err
}
func (f *fakeConsents) Invite(ctx context.Context, caller, owner, wf string, req services.InviteRequest) (*services.Invitation, error) {
	f.last = call{caller: caller, owner: owner, kind: wf, invite: req}
	return f.invitation, f.err
}
func (f *fakeConsents) InviteFounder(ctx context.Context, caller, owner, wf string, index int, req services.InviteRequest) (*services.Invitation, error) {
	f.last = call{caller: caller, owner: owner, kind: wf, index: index, invite: req}
	return f.invitation, f.err
}
func (f *fakeConsents) FounderSign(ctx context.Context, caller, owner, wf string, req models.SignRequest) (*models.Signer, error) {
	f.last = call{caller: caller, owner: owner, kind: wf, sign: req}
	return f.signer, f.err
}
func (f *fakeConsents) Lock(ctx context.Context, caller, owner, wf string, locked bool) error {
	f.last = call{caller: caller, owner: owner, kind: wf, locked: locked}
	return f.err
}
func (f *fakeConsents) Describe(ctx context.Context, token string) (*models.SignerView, error) {
	f.last = call{id: token}
	return f.view, f.err
}
func (f *fakeConsents) Sign(ctx context.Context, token string, req models.SignRequest) (*models.SignaturePayload, error) {
	f.last = call{id: token, sign: req}
	return f.payload, f.err
}

type fakeStorage struct {
	ticket *services.UploadTicket
	url    string
	err    error
	last   call
}

func (f *fakeStorage) SignatureUploadURL(ctx context.Context, uid, contentType string) (*services.UploadTicket, error) {
	f.last = call{caller: uid, kind: contentType}
	return f.ticket, f.err
}
func (f *fakeStorage) DownloadURL(ctx context.Context, uid, key string) (string, error) {
	f.last = call{caller: uid, id: key}
	return f.url, f.err
}
