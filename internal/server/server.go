// server.go - HTTP server composition: routes, middleware, lifecycle.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"filehub/internal/store"
)

// Config carries the owned component instances and settings every route
// needs. Components are constructed once in main (or in tests) and passed
// here by reference; nothing in this package reaches for globals besides
// the metrics counters.
type Config struct {
	Addr string // e.g. ":8080"

	Store     *store.Store
	Assembler *Assembler
	Hub       *Hub

	AccessKeys []AccessKey

	ExpireTTL time.Duration // surfaced via /settings
	BaseURL   string        // surfaced via /settings

	StaticDir      string // front-end assets served at /; optional
	MaxUploadBytes int64  // 0 = unlimited

	RateLimit  int           // requests per RateWindow per IP; 0 disables
	RateWindow time.Duration
}

type Server struct {
	httpServer *http.Server
}

// New wires the routes and middleware chain:
// requestID -> access log -> rate limit -> access gate -> mux.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	mux.Handle("/settings", cfg.settingsHandler())
	mux.Handle("/auth", cfg.authHandler())
	mux.Handle("/events", cfg.eventsHandler())
	mux.Handle("/ws", cfg.wsHandler())
	mux.Handle("/files", cfg.filesHandler())
	mux.Handle("/upload", cfg.uploadHandler())
	mux.Handle("/upload-chunk", cfg.uploadChunkHandler())
	mux.Handle("/download/", cfg.downloadHandler())
	mux.Handle("/delete/", cfg.deleteHandler())
	mux.Handle("/health", healthHandler())
	mux.Handle("/metrics", metricsHandler())

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
		}
	}

	window := cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}

	var handler http.Handler = mux
	handler = cfg.gateMiddleware(handler)
	handler = newRateLimiter(cfg.RateLimit, window).middleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
