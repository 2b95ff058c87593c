package httpapi

import (
	"net/http"
)

type uploadRequest struct {
	ContentType string `json:"content_type"`
}

func (h *Handler) uploadSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	ticket, err := h.storage.SignatureUploadURL(ctx, uidFrom(ctx), req.ContentType)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) downloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	url, err := h.storage.DownloadURL(ctx, uidFrom(ctx), r.URL.Query().Get("key"))
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
