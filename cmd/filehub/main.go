package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"filehub/internal/server"
	"filehub/internal/store"
)

func main() {
	addr := getenvDefault("FH_ADDR", ":8080")
	dataDir := getenvDefault("FH_DATA_DIR", "data")
	keysFile := getenvDefault("FH_KEYS_FILE", "access-keys.yaml")
	staticDir := getenvDefault("FH_STATIC_DIR", "web")
	baseURL := getenvDefault("FH_BASE_URL", "")

	ttl := time.Duration(getenvInt("FH_EXPIRE_SECONDS", 60)) * time.Second
	sweepInterval := getenvDuration("FH_SWEEP_INTERVAL", time.Second)
	maxUpload := int64(getenvInt("FH_MAX_UPLOAD_BYTES", 0))
	rateLimit := getenvInt("FH_RATE_LIMIT", 0)
	rateWindow := getenvDuration("FH_RATE_WINDOW", time.Minute)

	st, err := store.New(dataDir)
	if err != nil {
		log.Printf("service=filehub msg=%q err=%v", "store_init_failed", err)
		os.Exit(1)
	}

	assembler, err := server.NewAssembler(st)
	if err != nil {
		log.Printf("service=filehub msg=%q err=%v", "assembler_init_failed", err)
		os.Exit(1)
	}

	keys, err := server.LoadAccessKeys(keysFile)
	if err != nil {
		log.Printf("service=filehub msg=%q err=%v", "access_keys_load_failed", err)
		os.Exit(1)
	}
	if len(keys) == 0 {
		log.Printf("service=filehub msg=%q file=%s",
			"no access keys configured, all gated requests will be refused", keysFile)
	}

	hub := server.NewHub()

	sweeper := server.NewSweeper(server.SweeperConfig{
		Interval:  sweepInterval,
		TTL:       ttl,
		Store:     st,
		Hub:       hub,
		Assembler: assembler,
	})

	srv := server.New(server.Config{
		Addr:           addr,
		Store:          st,
		Assembler:      assembler,
		Hub:            hub,
		AccessKeys:     keys,
		ExpireTTL:      ttl,
		BaseURL:        baseURL,
		StaticDir:      staticDir,
		MaxUploadBytes: maxUpload,
		RateLimit:      rateLimit,
		RateWindow:     rateWindow,
	})

	// Background sweeper lives until shutdown cancels its context.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=filehub msg=%q addr=%s data=%s ttl=%s keys=%d",
			"starting", addr, dataDir, ttl, len(keys))
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=filehub msg=%q signal=%s", "shutting_down", sig.String())
		stopSweeper()
		// Unblock every open event stream, then drain in-flight requests.
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=filehub msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=filehub msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=filehub msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("service=filehub msg=%q key=%s value=%q", "bad_int_env, using default", key, v)
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("service=filehub msg=%q key=%s value=%q", "bad_duration_env, using default", key, v)
		return def
	}
	return d
}
