package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/pipeline"
)

// handleUpload ingests a batch of documents from a multipart form. Files
// travel under the "files" field; each document succeeds or fails on its
// own and the response reports both.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with slack for multipart overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	uploads := make([]pipeline.Upload, 0, len(files))
	var rejected []pipeline.DocumentResult
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !extract.IsSupportedExtension(filename) {
			rejected = append(rejected, rejectedResult(filename,
				fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename))))
			continue
		}

		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, rejectedResult(filename, "failed to open file"))
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			rejected = append(rejected, rejectedResult(filename, "failed to read file"))
			continue
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			rejected = append(rejected, rejectedResult(filename,
				fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)))
			continue
		}
		uploads = append(uploads, pipeline.Upload{Filename: filename, Data: data})
	}

	report := s.svc.Ingest(r.Context(), uploads)
	report.Documents = append(report.Documents, rejected...)
	report.Failed += len(rejected)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func rejectedResult(filename, reason string) pipeline.DocumentResult {
	return pipeline.DocumentResult{
		Filename: filename,
		Status:   pipeline.StatusFailed,
		Error:    reason,
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
