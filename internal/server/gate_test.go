package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func gatedOK(t *testing.T, keys []AccessKey) http.Handler {
	t.Helper()
	cfg := Config{AccessKeys: keys}
	return cfg.gateMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestGateMissingCookieIsUnauthorized(t *testing.T) {
	handler := gatedOK(t, []AccessKey{{Name: "k", Key: "secret", ClientIP: "*"}})

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without cookie, got %d", rr.Code)
	}
}

func TestGateUnknownKeyIsForbidden(t *testing.T) {
	handler := gatedOK(t, []AccessKey{{Name: "k", Key: "secret", ClientIP: "*"}})

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.AddCookie(&http.Cookie{Name: accessKeyCookie, Value: "wrong"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for unknown key, got %d", rr.Code)
	}
}

func TestGateWildcardIPAllowsAnySource(t *testing.T) {
	handler := gatedOK(t, []AccessKey{{Name: "k", Key: "secret", ClientIP: "*"}})

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.RemoteAddr = "203.0.113.7:12345"
	req.AddCookie(&http.Cookie{Name: accessKeyCookie, Value: "secret"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for wildcard key, got %d", rr.Code)
	}
}

func TestGateIPRestrictedKey(t *testing.T) {
	keys := []AccessKey{{Name: "office", Key: "secret", ClientIP: "10.0.0.5,10.0.0.6,::1"}}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       int
	}{
		{"allowed ip", "10.0.0.5:9999", "", http.StatusOK},
		{"second allowed ip", "10.0.0.6:9999", "", http.StatusOK},
		{"blocked ip", "10.0.0.9:9999", "", http.StatusForbidden},
		{"allowed ipv6 loopback", "[::1]:9999", "", http.StatusOK},
		{"allowed via forwarded header", "127.0.0.1:1", "10.0.0.5", http.StatusOK},
		{"blocked via forwarded header", "10.0.0.5:1", "192.0.2.1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := gatedOK(t, keys)
			req := httptest.NewRequest(http.MethodGet, "/files", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			req.AddCookie(&http.Cookie{Name: accessKeyCookie, Value: "secret"})
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestGateExemptPaths(t *testing.T) {
	handler := gatedOK(t, nil) // empty allowlist: everything gated is refused

	exempt := []string{"/", "/index.html", "/favicon.ico", "/auth", "/health", "/css/app.css", "/js/app.js"}
	for _, path := range exempt {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected exempt path %s to pass, got %d", path, rr.Code)
		}
	}

	gated := []string{"/files", "/upload", "/events", "/settings", "/metrics", "/download/"}
	for _, path := range gated {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected gated path %s to yield 401, got %d", path, rr.Code)
		}
	}
}

func TestGateLocalizedErrorBody(t *testing.T) {
	handler := gatedOK(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	want := `{"error":"需要 Access Key"}`
	if got := rr.Body.String(); got != want+"\n" {
		t.Errorf("Expected body %q, got %q", want, got)
	}
}
