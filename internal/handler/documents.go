package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// DownloadDocument отдаёт документ (например, доказательство по спору) как вложение.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	token, _ := credentials(r)

	doc, err := h.service.DownloadDocument(r.Context(), token, r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, "download document", err, nil)
		return
	}
	defer doc.Body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	if doc.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, doc.Body); err != nil {
		h.logger.Warn("stream document error", zap.Error(err))
	}
}
