// delete.go - Blob deletion handler.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"filehub/internal/store"
)

// deleteHandler handles POST /delete/?f=<name>. Deleting a nonexistent
// blob is a reported 404, not a silent no-op; a successful delete
// broadcasts exactly one fileDeleted event.
func (cfg Config) deleteHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := store.SanitizeName(r.URL.Query().Get("f"))
		if name == "" {
			writeLocalizedError(w, r, http.StatusNotFound, textFileNotFound)
			return
		}

		if err := cfg.Store.Delete(name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeLocalizedError(w, r, http.StatusNotFound, textFileNotFound)
				return
			}
			rid := RequestIDFromContext(r.Context())
			logError("delete_failed", map[string]any{"rid": rid, "file": name}, err)
			writeLocalizedError(w, r, http.StatusInternalServerError, textServerError)
			return
		}

		cfg.Hub.Broadcast(EventFileDeleted, fileEvent{FileName: name})
		GetMetrics().RecordDelete()
		logInfo("file_deleted", map[string]any{"file": name, "ip": clientIP(r)})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"fileName": name,
		})
	})
}
