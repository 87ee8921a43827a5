// auth.go - Key-exchange endpoint.
//
// POST /auth accepts the shared secret as a form field and establishes it
// as a long-lived cookie for subsequent requests. The endpoint itself is
// exempt from the access gate; the presented key is only validated when a
// gated route is hit, so a wrong key simply yields 403 later.
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// accessKeyCookieTTL matches the 30-day credential lifetime of the
// browser front end.
const accessKeyCookieTTL = 30 * 24 * time.Hour

func (cfg Config) authHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			if err := r.ParseForm(); err != nil {
				writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
				return
			}
		}

		key := r.FormValue("key")
		if key == "" {
			writeLocalizedError(w, r, http.StatusBadRequest, textMissingKeyParam)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     accessKeyCookie,
			Value:    key,
			Path:     "/",
			Expires:  time.Now().Add(accessKeyCookieTTL),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})

		logInfo("access_key_cookie_set", map[string]any{"ip": clientIP(r)})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": langText(textAccessKeySet, requestLang(r)),
		})
	})
}
