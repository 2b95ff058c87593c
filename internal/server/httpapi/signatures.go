package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/gorilla/mux"
)

func (h *Handler) getSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	p, err := h.ledger.Get(ctx, uidFrom(ctx), vars["uid"], vars["family"], vars["doc"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) signDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	var req models.SignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	p, err := h.ledger.Sign(ctx, uidFrom(ctx), vars["uid"], vars["family"], vars["doc"], req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listSignatures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.ledger.List(ctx, uidFrom(ctx), mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
