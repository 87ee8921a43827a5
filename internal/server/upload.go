// upload.go - Whole-file and chunked upload handlers.
package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"filehub/internal/store"
)

// chunkFormMemory caps how much of a chunk form is buffered in memory
// before spilling to temp files.
const chunkFormMemory = 32 << 20

// uploadResp is the JSON response for a completed whole-file upload.
type uploadResp struct {
	Success  bool   `json:"success"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// chunkResp is the JSON response for one accepted chunk. FileName and
// Size are present only when this chunk completed the upload.
type chunkResp struct {
	Success    bool   `json:"success"`
	ChunkIndex int    `json:"chunkIndex"`
	Complete   bool   `json:"complete"`
	FileName   string `json:"fileName,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

// uploadHandler handles POST /upload: a multipart form with one file part.
// The blob is stored atomically under the sanitized base name of the
// part's filename, then a fileUploaded event is broadcast.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		start := time.Now()

		mr, err := r.MultipartReader()
		if err != nil {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}

		part, name := nextFilePart(mr)
		if part == nil {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}
		defer func() { _ = part.Close() }()

		safeName := store.SanitizeName(name)
		if safeName == "" {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}

		entry, err := cfg.Store.Put(safeName, part)
		if err != nil {
			GetMetrics().RecordUploadError()
			rid := RequestIDFromContext(r.Context())
			logError("upload_failed", map[string]any{"rid": rid, "file": safeName}, err)

			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			writeLocalizedError(w, r, http.StatusInternalServerError, textServerError)
			return
		}

		cfg.Hub.Broadcast(EventFileUploaded, fileEvent{FileName: entry.Name})
		GetMetrics().RecordUpload(entry.Size, time.Since(start))
		logInfo("file_uploaded", map[string]any{
			"file": entry.Name, "size": entry.Size, "ip": clientIP(r),
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(uploadResp{
			Success:  true,
			FileName: entry.Name,
			Size:     entry.Size,
		})
	})
}

// nextFilePart returns the first multipart part that carries a filename,
// along with that filename.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, string) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, ""
		}
		if part.FileName() != "" {
			return part, part.FileName()
		}
		_ = part.Close()
	}
}

// uploadChunkHandler handles POST /upload-chunk: one chunk's bytes plus
// the fileName, uploadId, chunkIndex, and totalChunks form fields. The
// response reports whether this chunk completed the upload; completion
// also broadcasts fileUploaded.
func (cfg Config) uploadChunkHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		if err := r.ParseMultipartForm(chunkFormMemory); err != nil {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		fileName := r.FormValue("fileName")
		uploadID := r.FormValue("uploadId")
		index, indexErr := strconv.Atoi(r.FormValue("chunkIndex"))
		total, totalErr := strconv.Atoi(r.FormValue("totalChunks"))
		if indexErr != nil || totalErr != nil {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}

		chunk := firstFormFile(r.MultipartForm)
		if chunk == nil || fileName == "" || uploadID == "" {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}

		data, err := chunk.Open()
		if err != nil {
			writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			return
		}
		defer func() { _ = data.Close() }()

		result, err := cfg.Assembler.PutChunk(uploadID, fileName, index, total, data)
		if err != nil {
			GetMetrics().RecordUploadError()
			rid := RequestIDFromContext(r.Context())
			logError("chunk_failed", map[string]any{
				"rid": rid, "uploadId": uploadID, "index": index,
			}, err)
			// Validation failures (bad names, out-of-range indices) are the
			// client's fault; anything past validation is I/O.
			if isChunkValidationError(index, total, fileName, uploadID) {
				writeLocalizedError(w, r, http.StatusBadRequest, textInvalidRequest)
			} else {
				writeLocalizedError(w, r, http.StatusInternalServerError, textServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !result.Complete {
			_ = json.NewEncoder(w).Encode(chunkResp{
				Success:    true,
				ChunkIndex: index,
			})
			return
		}

		cfg.Hub.Broadcast(EventFileUploaded, fileEvent{FileName: result.FileName})
		GetMetrics().RecordUpload(result.Size, 0)
		logInfo("file_uploaded_chunked", map[string]any{
			"file": result.FileName, "size": result.Size, "chunks": total, "ip": clientIP(r),
		})

		_ = json.NewEncoder(w).Encode(chunkResp{
			Success:    true,
			ChunkIndex: index,
			Complete:   true,
			FileName:   result.FileName,
			Size:       result.Size,
		})
	})
}

// firstFormFile returns the first uploaded file in the parsed form,
// regardless of its field name.
func firstFormFile(form *multipart.Form) *multipart.FileHeader {
	for _, headers := range form.File {
		if len(headers) > 0 {
			return headers[0]
		}
	}
	return nil
}

func isChunkValidationError(index, total int, fileName, uploadID string) bool {
	return total <= 0 || index < 0 || index >= total ||
		store.SanitizeName(fileName) == "" || store.SanitizeName(uploadID) == ""
}
