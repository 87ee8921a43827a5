// settings.go - Client-facing configuration handler.
package server

import (
	"encoding/json"
	"net/http"
)

// settingsHandler handles GET /settings: the expiry TTL in seconds and a
// base-URL hint the front end uses to build shareable links.
func (cfg Config) settingsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expireSeconds": int(cfg.ExpireTTL.Seconds()),
			"appBaseUrl":    cfg.BaseURL,
		})
	})
}
