package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// offer takes the term fields as the whole JSON body.
func (h *Handler) offer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	terms := map[string]any{}
	if err := decodeJSON(r, &terms); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	ts, err := h.termSheets.Offer(ctx, uidFrom(ctx), vars["kind"], vars["deal_id"], terms)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ts)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	ts, err := h.termSheets.Accept(ctx, uidFrom(ctx), vars["kind"], vars["deal_id"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	ts, err := h.termSheets.Current(ctx, uidFrom(ctx), vars["kind"], vars["deal_id"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	list, err := h.termSheets.History(ctx, uidFrom(ctx), vars["kind"], vars["deal_id"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) historyXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	data, err := h.termSheets.Export(ctx, uidFrom(ctx), vars["kind"], vars["deal_id"])
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s-history.xlsx"`, vars["kind"], vars["deal_id"]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
