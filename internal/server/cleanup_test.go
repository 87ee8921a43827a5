package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filehub/internal/store"
)

func putAged(t *testing.T, st *store.Store, name string, createdAt time.Time) {
	t.Helper()
	_, err := st.Put(name, strings.NewReader("payload"))
	require.NoError(t, err)
	path := filepath.Join(st.Dir(), name)
	require.NoError(t, os.Chtimes(path, createdAt, createdAt))
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	hub := NewHub()
	sink := &recordSink{}
	hub.Subscribe(sink)

	sw := NewSweeper(SweeperConfig{TTL: 60 * time.Second, Store: st, Hub: hub})

	now := time.Now()
	putAged(t, st, "old1.txt", now.Add(-120*time.Second))
	putAged(t, st, "old2.txt", now.Add(-61*time.Second))
	putAged(t, st, "young.txt", now.Add(-10*time.Second))

	deleted := sw.Sweep(now)
	require.Equal(t, 2, deleted)

	entries, err := st.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "young.txt", entries[0].Name)

	events := sink.received()
	require.Equal(t, `filesCleanedUp {"count":2}`, events[len(events)-1])
}

func TestSweepBoundaryIsStrict(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	sw := NewSweeper(SweeperConfig{TTL: 60 * time.Second, Store: st})

	now := time.Now().Truncate(time.Second)
	// CreatedAt exactly at the cutoff: must survive until the next tick.
	putAged(t, st, "boundary.txt", now.Add(-60*time.Second))

	require.Equal(t, 0, sw.Sweep(now))

	entries, err := st.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSweepTTLScenario(t *testing.T) {
	// Upload b.txt at t=0 with TTL=60s: a sweep at t=59 keeps it, a sweep
	// at t=61 deletes it and emits filesCleanedUp{count:1}.
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	hub := NewHub()
	sink := &recordSink{}
	hub.Subscribe(sink)

	sw := NewSweeper(SweeperConfig{TTL: 60 * time.Second, Store: st, Hub: hub})

	t0 := time.Now()
	putAged(t, st, "b.txt", t0)

	require.Equal(t, 0, sw.Sweep(t0.Add(59*time.Second)))
	require.Equal(t, 1, sw.Sweep(t0.Add(61*time.Second)))

	events := sink.received()
	require.Equal(t, `filesCleanedUp {"count":1}`, events[len(events)-1])
}

func TestSweepNoEventWhenNothingDeleted(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	hub := NewHub()
	sink := &recordSink{}
	hub.Subscribe(sink)

	sw := NewSweeper(SweeperConfig{TTL: 60 * time.Second, Store: st, Hub: hub})
	putAged(t, st, "fresh.txt", time.Now())

	require.Equal(t, 0, sw.Sweep(time.Now()))

	// Only the connected event, no filesCleanedUp.
	require.Len(t, sink.received(), 1)
}

func TestSweepReapsStaleStaging(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	a, err := NewAssembler(st)
	require.NoError(t, err)

	sw := NewSweeper(SweeperConfig{TTL: 60 * time.Second, Store: st, Assembler: a})

	_, err = a.PutChunk("abandoned", "x.txt", 0, 5, strings.NewReader("part"))
	require.NoError(t, err)
	stale := filepath.Join(st.Dir(), stagingDirName, "abandoned")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	sw.Sweep(time.Now())

	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	sw := NewSweeper(SweeperConfig{Interval: 5 * time.Millisecond, TTL: time.Hour, Store: st})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestSweepSurvivesMissingRoot(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "data"))
	require.NoError(t, err)

	sw := NewSweeper(SweeperConfig{TTL: time.Second, Store: st})

	// Pull the directory out from under the sweeper: the sweep logs and
	// returns instead of panicking, and a later sweep works again.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "data")))
	require.Equal(t, 0, sw.Sweep(time.Now()))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	putAged(t, st, "old.txt", time.Now().Add(-time.Minute))
	require.Equal(t, 1, sw.Sweep(time.Now()))
}
