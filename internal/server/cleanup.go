// cleanup.go - Background expiry sweeper.
//
// A fixed-interval ticker scans the blob store and deletes files older
// than the configured TTL. The tick interval is independent of (and
// typically much shorter than) the TTL, trading a cheap directory scan
// per tick for prompt expiry.
package server

import (
	"context"
	"log"
	"time"

	"filehub/internal/store"
)

// SweeperConfig holds configuration for the expiry sweeper.
type SweeperConfig struct {
	Interval  time.Duration // tick period, default 1s
	TTL       time.Duration // age at which blobs expire, default 60s
	Store     *store.Store
	Hub       *Hub
	Assembler *Assembler
}

// Sweeper periodically deletes expired blobs and abandoned chunk staging
// directories, broadcasting one aggregate event per sweep that deleted
// anything.
type Sweeper struct {
	cfg SweeperConfig
}

// NewSweeper applies defaults and returns a sweeper ready to Run.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	return &Sweeper{cfg: cfg}
}

// TTL returns the configured expiry age.
func (s *Sweeper) TTL() time.Duration {
	return s.cfg.TTL
}

// Run loops until ctx is done. Sweep failures are logged and never stop
// the ticker; the next tick always fires.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("service=sweeper msg=%q interval=%s ttl=%s",
		"starting", s.cfg.Interval, s.cfg.TTL)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep runs one scan-and-delete cycle with the given reference time and
// returns the number of blobs deleted. A blob whose CreatedAt equals the
// cutoff is kept: only strictly-older files expire, so a file landing
// exactly at the boundary survives until the next tick.
func (s *Sweeper) Sweep(now time.Time) int {
	cutoff := now.Add(-s.cfg.TTL)

	entries, err := s.cfg.Store.List()
	if err != nil {
		log.Printf("service=sweeper msg=%q err=%v", "scan_failed", err)
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if !e.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.cfg.Store.Delete(e.Name); err != nil {
			// A concurrent explicit delete is fine; anything else is
			// logged and the sweep moves on.
			log.Printf("service=sweeper msg=%q file=%s err=%v", "delete_failed", e.Name, err)
			continue
		}
		deleted++
		log.Printf("service=sweeper msg=%q file=%s age=%s",
			"expired_file_deleted", e.Name, now.Sub(e.CreatedAt).Truncate(time.Millisecond))
	}

	if s.cfg.Assembler != nil {
		if stale := s.cfg.Assembler.SweepStale(cutoff); stale > 0 {
			log.Printf("service=sweeper msg=%q removed=%d", "stale_uploads_removed", stale)
		}
	}

	if deleted > 0 {
		log.Printf("service=sweeper msg=%q deleted=%d", "sweep_complete", deleted)
		GetMetrics().RecordExpiry(deleted)
		if s.cfg.Hub != nil {
			s.cfg.Hub.Broadcast(EventFilesCleanedUp, cleanupEvent{Count: deleted})
		}
	}
	return deleted
}
