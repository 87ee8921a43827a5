// download.go - Blob download handler.
package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"filehub/internal/store"
)

// downloadHandler handles GET /download/?f=<name>: raw bytes with a
// generic binary content type and the sanitized name as the suggested
// filename.
func (cfg Config) downloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		start := time.Now()

		f, entry, err := cfg.Store.Open(r.URL.Query().Get("f"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeLocalizedError(w, r, http.StatusNotFound, textFileNotFound)
				return
			}
			GetMetrics().RecordDownloadError()
			rid := RequestIDFromContext(r.Context())
			logError("download_failed", map[string]any{"rid": rid}, err)
			writeLocalizedError(w, r, http.StatusInternalServerError, textServerError)
			return
		}
		defer func() { _ = f.Close() }()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
		// FormatMediaType quotes and escapes the name, so quotes or other
		// specials in a stored name cannot break the header.
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": entry.Name}))
		w.WriteHeader(http.StatusOK)

		n, _ := io.Copy(w, f)
		GetMetrics().RecordDownload(n, time.Since(start))
		logInfo("file_downloaded", map[string]any{
			"file": entry.Name, "size": entry.Size, "ip": clientIP(r),
		})
	})
}
