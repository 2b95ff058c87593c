// Package httpapi exposes the dealflow services over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/dealflow/internal/logging"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type UserService interface {
	Register(ctx context.Context, email, password, role string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type DealService interface {
	Create(ctx context.Context, investorUID, startupUID string) (*models.Deal, bool, error)
	Get(ctx context.Context, uid, dealID string) (*models.Deal, error)
	List(ctx context.Context, uid string) ([]models.Deal, error)
	Transition(ctx context.Context, uid, dealID, action string) (*models.Deal, error)
}

type TermSheetService interface {
	Offer(ctx context.Context, uid, kind, dealID string, terms map[string]any) (*models.TermSheet, error)
	Accept(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error)
	Current(ctx context.Context, uid, kind, dealID string) (*models.TermSheet, error)
	History(ctx context.Context, uid, kind, dealID string) ([]models.TermSheet, error)
	Export(ctx context.Context, uid, kind, dealID string) ([]byte, error)
}

type LedgerService interface {
	Get(ctx context.Context, caller, owner, family, doc string) (*models.SignaturePayload, error)
	Sign(ctx context.Context, caller, owner, family, doc string, req models.SignRequest) (*models.SignaturePayload, error)
	List(ctx context.Context, caller, owner string) ([]services.SignedDoc, error)
}

type ConsentService interface {
	Get(ctx context.Context, caller, owner, wf string) (*models.ConsentDocument, error)
	Invite(ctx context.Context, caller, owner, wf string, req services.InviteRequest) (*services.Invitation, error)
	InviteFounder(ctx context.Context, caller, owner, wf string, index int, req services.InviteRequest) (*services.Invitation, error)
	FounderSign(ctx context.Context, caller, owner, wf string, req models.SignRequest) (*models.Signer, error)
	Lock(ctx context.Context, caller, owner, wf string, locked bool) error
	Describe(ctx context.Context, token string) (*models.SignerView, error)
	Sign(ctx context.Context, token string, req models.SignRequest) (*models.SignaturePayload, error)
}

type StorageService interface {
	SignatureUploadURL(ctx context.Context, uid, contentType string) (*services.UploadTicket, error)
	DownloadURL(ctx context.Context, uid, key string) (string, error)
}

// Deps are the services served by the API. Metrics may be nil.
type Deps struct {
	Users      UserService
	Deals      DealService
	TermSheets TermSheetService
	Ledger     LedgerService
	Consents   ConsentService
	Storage    StorageService
	Metrics    http.Handler
	Logger     logging.Logger
	JWTSecret  []byte
}

type Handler struct {
	users      UserService
	deals      DealService
	termSheets TermSheetService
	ledger     LedgerService
	consents   ConsentService
	storage    StorageService
	metrics    http.Handler
	logger     logging.Logger
	jwtSecret  []byte
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		users:      d.Users,
		deals:      d.Deals,
		termSheets: d.TermSheets,
		ledger:     d.Ledger,
		consents:   d.Consents,
		storage:    d.Storage,
		metrics:    d.Metrics,
		logger:     d.Logger.With("module", "http_api"),
		jwtSecret:  d.JWTSecret,
	}
}

// Router wires every route. Fixed path segments are registered before the
// generic /{uid}/{family}/{doc} routes so they take precedence.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	auth := func(f http.HandlerFunc) http.Handler { return h.requireAuth(f) }

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}

	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)

	r.HandleFunc("/sign/{token}", h.describeToken).Methods(http.MethodGet)
	r.HandleFunc("/sign/{token}", h.signWithToken).Methods(http.MethodPost)

	r.Handle("/uploads/signature", auth(h.uploadSignature)).Methods(http.MethodPost)
	r.Handle("/uploads/url", auth(h.downloadURL)).Methods(http.MethodGet)

	r.Handle("/deals", auth(h.createDeal)).Methods(http.MethodPost)
	r.Handle("/deals", auth(h.listDeals)).Methods(http.MethodGet)
	r.Handle("/deals/{deal_id}", auth(h.getDeal)).Methods(http.MethodGet)
	r.Handle("/deals/{deal_id}/{action:activate|accept|close|cancel}", auth(h.transitionDeal)).Methods(http.MethodPost)

	ts := "/deal/termsheet/{kind:safe|note}/{deal_id}"
	r.Handle(ts+"/offer", auth(h.offer)).Methods(http.MethodPost)
	r.Handle(ts+"/accept", auth(h.accept)).Methods(http.MethodPost)
	r.Handle(ts+"/current", auth(h.current)).Methods(http.MethodGet)
	r.Handle(ts+"/history", auth(h.history)).Methods(http.MethodGet)
	r.Handle(ts+"/history.xlsx", auth(h.historyXLSX)).Methods(http.MethodGet)

	bc := "/{uid}/{wf:safe|note}/board-consent"
	r.Handle(bc, auth(h.getConsent)).Methods(http.MethodGet)
	r.Handle(bc+"/invite", auth(h.inviteDirector)).Methods(http.MethodPost)
	r.Handle(bc+"/founder-invite", auth(h.inviteFounder)).Methods(http.MethodPost)
	r.Handle(bc+"/founder-sign", auth(h.founderSign)).Methods(http.MethodPost)
	r.Handle(bc+"/lock", auth(h.lockConsent)).Methods(http.MethodPost)

	r.Handle("/{uid}/signatures", auth(h.listSignatures)).Methods(http.MethodGet)
	doc := "/{uid}/{family:safe|note|equity}/{doc}"
	r.Handle(doc, auth(h.getSignature)).Methods(http.MethodGet)
	r.Handle(doc+"/sign", auth(h.signDocument)).Methods(http.MethodPost)

	// auth is a bearer header; credentials stay disabled
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(h.logRequests(r))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
