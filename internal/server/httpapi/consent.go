package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/dmitrijs2005/dealflow/internal/server/services"
	"github.com/gorilla/mux"
)

type founderInviteRequest struct {
	services.InviteRequest
	FounderIndex *int `json:"founder_index"`
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

func (h *Handler) getConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	doc, err := h.consents.Get(ctx, uidFrom(ctx), vars["uid"], vars["wf"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) inviteDirector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	var req services.InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	inv, err := h.consents.Invite(ctx, uidFrom(ctx), vars["uid"], vars["wf"], req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) inviteFounder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	var req founderInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	if req.FounderIndex == nil {
		writeError(ctx, w, h.logger, fmt.Errorf("%w: founder_index is required", common.ErrValidation))
		return
	}
	inv, err := h.consents.InviteFounder(ctx, uidFrom(ctx), vars["uid"], vars["wf"], *req.FounderIndex, req.InviteRequest)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) founderSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	var req models.SignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	s, err := h.consents.FounderSign(ctx, uidFrom(ctx), vars["uid"], vars["wf"], req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) lockConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	var req lockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	if req.Locked == nil {
		writeError(ctx, w, h.logger, fmt.Errorf("%w: locked is required", common.ErrValidation))
		return
	}
	if err := h.consents.Lock(ctx, uidFrom(ctx), vars["uid"], vars["wf"], *req.Locked); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"locked": *req.Locked})
}

// describeToken and signWithToken are public: the token is the credential.
func (h *Handler) describeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.consents.Describe(ctx, mux.Vars(r)["token"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) signWithToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	p, err := h.consents.Sign(ctx, mux.Vars(r)["token"], req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
