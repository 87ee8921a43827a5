// gate.go - Access-key gate middleware.
//
// Every route except the exempt set requires the X-Access-Key cookie set
// by POST /auth. The check is a pure function of (path, presented key,
// source IP) against the startup allowlist: missing cookie is 401, a key
// that matches no entry (or matches one whose IP set excludes the caller)
// is 403.
package server

import (
	"net/http"
	"strings"
)

// accessKeyCookie carries the shared secret after key exchange.
const accessKeyCookie = "X-Access-Key"

// gateExempt reports whether the path bypasses the access gate: the home
// page and static assets, the key-exchange endpoint, and health.
func gateExempt(path string) bool {
	path = strings.ToLower(path)
	switch path {
	case "/", "/index.html", "/favicon.ico", "/auth", "/health":
		return true
	}
	return strings.HasPrefix(path, "/css") || strings.HasPrefix(path, "/js")
}

// gateMiddleware enforces the access-key allowlist before any gated
// handler runs.
func (cfg Config) gateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gateExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)

		c, err := r.Cookie(accessKeyCookie)
		if err != nil || c.Value == "" {
			logWarn("access_denied_missing_key", map[string]any{"path": r.URL.Path, "ip": ip})
			writeLocalizedError(w, r, http.StatusUnauthorized, textAccessKeyRequired)
			return
		}

		matched, ok := matchAccessKey(cfg.AccessKeys, c.Value, ip)
		if !ok {
			logWarn("access_denied_invalid_key", map[string]any{"path": r.URL.Path, "ip": ip})
			writeLocalizedError(w, r, http.StatusForbidden, textInvalidAccessKey)
			return
		}

		logDebug("access_key_ok", map[string]any{"key": matched.Name, "ip": ip})
		next.ServeHTTP(w, r)
	})
}

// matchAccessKey returns the first allowlist entry whose secret matches
// and whose IP set permits the caller.
func matchAccessKey(keys []AccessKey, presented, ip string) (AccessKey, bool) {
	for _, k := range keys {
		if k.Key == presented && k.allowsIP(ip) {
			return k, true
		}
	}
	return AccessKey{}, false
}
