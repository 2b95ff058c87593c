package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/gorilla/mux"
)

type createDealRequest struct {
	StartupUID string `json:"startup_uid"`
}

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if roleFrom(ctx) != models.RoleInvestor {
		writeError(ctx, w, h.logger, common.ErrorUnauthorized)
		return
	}
	var req createDealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	d, created, err := h.deals.Create(ctx, uidFrom(ctx), req.StartupUID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, d)
}

func (h *Handler) listDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.deals.List(ctx, uidFrom(ctx))
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.deals.Get(ctx, uidFrom(ctx), mux.Vars(r)["deal_id"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) transitionDeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	d, err := h.deals.Transition(ctx, uidFrom(ctx), vars["deal_id"], vars["action"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
