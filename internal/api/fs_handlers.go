package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/p-arndt/codeexec/internal/storage"
)

const maxUploadBytes int64 = 100 * 1024 * 1024

// handleUploadFiles stores multipart form files into the session. Both the
// `files` and `file` field names are accepted. Filenames are validated
// before they touch the backend; one bad name fails the whole request so a
// partial upload never looks like success.
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeValidationError(w, "invalid multipart form: "+err.Error(), nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		writeValidationError(w, "no files provided", map[string]interface{}{
			"field": "files",
		})
		return
	}

	for _, fh := range headers {
		if err := storage.ValidateUserPath(fh.Filename); err != nil {
			writeAPIError(w, fmt.Errorf("%w: %s", storage.ErrInvalidPath, fh.Filename))
			return
		}
	}

	saved := make([]string, 0, len(headers))
	for _, fh := range headers {
		content, err := readFormFile(fh)
		if err != nil {
			s.logger.Error("read upload", "session_id", id, "file", fh.Filename, "error", err)
			writeAPIError(w, err)
			return
		}
		if err := s.backend.Put(r.Context(), id, fh.Filename, content); err != nil {
			s.logger.Error("store upload", "session_id", id, "file", fh.Filename, "error", err)
			writeAPIError(w, err)
			return
		}
		saved = append(saved, fh.Filename)
	}

	s.logger.Info("files uploaded", "session_id", id, "count", len(saved))
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleDownloadFile streams one session file back as raw bytes.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	relPath := r.PathValue("path")

	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	if err := storage.ValidateUserPath(relPath); err != nil {
		writeAPIError(w, err)
		return
	}

	rc, err := s.backend.Open(r.Context(), id, relPath)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("open file", "session_id", id, "path", relPath, "error", err)
		}
		writeAPIError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(relPath)))
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; all we can do is log the broken transfer.
		s.logger.Error("stream file", "session_id", id, "path", relPath, "error", err)
	}
}
