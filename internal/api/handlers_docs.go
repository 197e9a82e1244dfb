package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/markup"
	"github.com/dgallion1/dartgest/internal/parser"
	"github.com/dgallion1/dartgest/internal/render"
)

const (
	defaultFailureLimit = 100
	maxFailureLimit     = 1000
)

// handleParse runs the document pipeline on an upload and returns the
// record without submitting it.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, s.parserOpts)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	rec, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		body := map[string]string{"error": err.Error()}
		var pe *markup.ParseError
		if errors.As(err, &pe) {
			body["diagnostic"] = pe.Diagnostic()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(body)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		out, err := render.HTML(rec)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(out)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// handleFailures lists the most recent ledger entries.
func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	if s.failures == nil {
		jsonError(w, "failure ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultFailureLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxFailureLimit)
	}

	entries, err := s.failures.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list failures: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"failures": entries, "count": len(entries)})
}
