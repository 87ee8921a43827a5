// assembler.go - Chunked upload assembly.
//
// Chunks for one upload land in a staging directory named by the client's
// uploadId under <data>/_chunks/. When the count of staged chunks reaches
// totalChunks they are concatenated in index order into the blob store.
// All work for one uploadId is serialized by a per-key mutex, so the
// completion check and the merge happen exactly once even when the last
// two chunks arrive concurrently.
package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filehub/internal/store"
)

// stagingDirName is the directory under the store root holding in-progress
// uploads. It starts with an underscore so it sorts apart from blobs; the
// store skips directories when listing either way.
const stagingDirName = "_chunks"

// ChunkResult reports the outcome of one accepted chunk.
type ChunkResult struct {
	FileName string // sanitized target name
	Index    int
	Complete bool  // true when this chunk completed the upload
	Size     int64 // final blob size, set only when Complete
}

// Assembler tracks in-progress chunked uploads on disk. The staging
// directory is the only session state; a process restart can resume an
// upload as long as the client retries its remaining chunks.
type Assembler struct {
	store   *store.Store
	staging string

	mu      sync.Mutex
	uploads map[string]*uploadLock
}

// uploadLock serializes chunk puts and the merge for one uploadId.
// refs counts in-flight holders so idle entries can be dropped.
type uploadLock struct {
	sync.Mutex
	refs int
}

// NewAssembler returns an assembler staging under st's directory.
func NewAssembler(st *store.Store) (*Assembler, error) {
	staging := filepath.Join(st.Dir(), stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	return &Assembler{
		store:   st,
		staging: staging,
		uploads: make(map[string]*uploadLock),
	}, nil
}

// lockUpload acquires the per-uploadId mutex.
func (a *Assembler) lockUpload(uploadID string) *uploadLock {
	a.mu.Lock()
	ul, ok := a.uploads[uploadID]
	if !ok {
		ul = &uploadLock{}
		a.uploads[uploadID] = ul
	}
	ul.refs++
	a.mu.Unlock()

	ul.Lock()
	return ul
}

func (a *Assembler) unlockUpload(uploadID string, ul *uploadLock) {
	ul.Unlock()

	a.mu.Lock()
	ul.refs--
	if ul.refs == 0 {
		delete(a.uploads, uploadID)
	}
	a.mu.Unlock()
}

// PutChunk stages one chunk and merges the upload if it is now complete.
//
// uploadId is a client-supplied opaque token and doubles as the staging
// directory name, so it is sanitized like a filename. Re-sending an index
// overwrites the earlier chunk, making retries idempotent. totalChunks is
// trusted as presented on each call; a client that changes it mid-upload
// gets whatever completion timing the latest value implies.
func (a *Assembler) PutChunk(uploadID, fileName string, index, total int, r io.Reader) (ChunkResult, error) {
	safeName := store.SanitizeName(fileName)
	safeID := store.SanitizeName(uploadID)
	if safeName == "" || safeID == "" {
		return ChunkResult{}, fmt.Errorf("invalid upload identity (uploadId=%q fileName=%q)", uploadID, fileName)
	}
	if total <= 0 || index < 0 || index >= total {
		return ChunkResult{}, fmt.Errorf("chunk index %d out of range for %d chunks", index, total)
	}

	ul := a.lockUpload(safeID)
	defer a.unlockUpload(safeID, ul)

	dir := filepath.Join(a.staging, safeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ChunkResult{}, fmt.Errorf("create staging dir: %w", err)
	}

	if err := writeChunkFile(filepath.Join(dir, chunkFileName(index)), r); err != nil {
		return ChunkResult{}, err
	}

	staged, err := countChunks(dir)
	if err != nil {
		return ChunkResult{}, err
	}
	if staged < total {
		return ChunkResult{FileName: safeName, Index: index}, nil
	}

	size, err := a.merge(dir, safeName, total)
	if err != nil {
		// Staging stays intact so the client can retry the last chunk.
		return ChunkResult{}, err
	}
	return ChunkResult{FileName: safeName, Index: index, Complete: true, Size: size}, nil
}

// merge concatenates chunks 0..total-1 into the blob store and removes the
// staging directory. The concatenation goes through store.Put, so the final
// name appears only once fully written.
func (a *Assembler) merge(dir, fileName string, total int) (int64, error) {
	readers := make([]io.Reader, 0, total)
	files := make([]*os.File, 0, total)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	for i := 0; i < total; i++ {
		f, err := os.Open(filepath.Join(dir, chunkFileName(i)))
		if err != nil {
			return 0, fmt.Errorf("open chunk %d: %w", i, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	entry, err := a.store.Put(fileName, io.MultiReader(readers...))
	if err != nil {
		return 0, fmt.Errorf("merge chunks: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		// The blob is already visible; a leftover staging dir is reaped by
		// the stale sweep.
		logWarn("staging_cleanup_failed", map[string]any{"dir": dir, "err": err.Error()})
	}
	return entry.Size, nil
}

// SweepStale removes staging directories untouched since before cutoff.
// Each directory's mtime advances on every chunk write, so only abandoned
// sessions qualify. Runs under the same per-upload locks as PutChunk and
// therefore never races an active merge.
func (a *Assembler) SweepStale(cutoff time.Time) int {
	dirents, err := os.ReadDir(a.staging)
	if err != nil {
		logWarn("staging_scan_failed", map[string]any{"err": err.Error()})
		return 0
	}

	removed := 0
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		id := de.Name()
		ul := a.lockUpload(id)
		// Re-check under the lock: a chunk may have arrived meanwhile.
		if info, err := os.Stat(filepath.Join(a.staging, id)); err == nil && info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(a.staging, id)); err == nil {
				removed++
			}
		}
		a.unlockUpload(id, ul)
	}
	return removed
}

func chunkFileName(index int) string {
	return fmt.Sprintf("%06d", index)
}

func writeChunkFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chunk file: %w", err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write chunk file: %w", err)
	}
	return nil
}

func countChunks(dir string) (int, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	n := 0
	for _, de := range dirents {
		if !de.IsDir() {
			n++
		}
	}
	return n, nil
}
