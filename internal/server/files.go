// files.go - Blob listing handler.
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// fileInfo is one listing row.
type fileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// filesHandler handles GET /files. The listing is read fresh from disk on
// every call so it always reflects concurrent uploads, deletes, and expiry.
func (cfg Config) filesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		entries, err := cfg.Store.List()
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			logError("list_failed", map[string]any{"rid": rid}, err)
			writeLocalizedError(w, r, http.StatusInternalServerError, textServerError)
			return
		}

		files := make([]fileInfo, 0, len(entries))
		for _, e := range entries {
			files = append(files, fileInfo{Name: e.Name, Size: e.Size, CreatedAt: e.CreatedAt})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	})
}
