// Package api exposes the study-aid generation pipeline over HTTP. Each task
// endpoint accepts a multipart document upload and streams newline-delimited
// JSON progress events followed by a terminal result event.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/vincentnw/studypal/internal/extract"
	"github.com/vincentnw/studypal/internal/generate"
	"github.com/vincentnw/studypal/internal/pipeline"
)

const defaultMaxUploadBytes = 25 << 20 // 25MB

// Runner abstracts the pipeline for the HTTP layer.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, sink pipeline.Sink) error
}

// Deps carries everything the handler needs.
type Deps struct {
	Runner         Runner
	UploadDir      string // temp uploads land here; empty means the OS default
	AllowedOrigin  string // CORS origin; empty disables CORS headers
	MaxUploadBytes int64  // request body cap; <= 0 means the default
}

// NewHandler builds the HTTP router.
func NewHandler(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}

	r := chi.NewRouter()
	if deps.AllowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{deps.AllowedOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Get("/health", handleHealth)
	r.Post("/api/notes", handleGenerate(deps, generate.TaskNotes))
	r.Post("/api/flashcards", handleGenerate(deps, generate.TaskFlashcards))
	r.Post("/api/quiz", handleGenerate(deps, generate.TaskQuiz))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGenerate(deps Deps, task generate.Task) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "upload exceeds the %d byte limit", maxErr.Limit)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no file uploaded")
			return
		}
		defer file.Close()

		format, err := extract.DetectFormat(header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "unsupported_format", "%v", err)
			return
		}

		path, err := saveUpload(deps.UploadDir, file)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "storing upload: %v", err)
			return
		}
		// The pipeline owns the temp file from here and removes it in cleanup.

		sink := newStreamSink(w)
		err = deps.Runner.Run(r.Context(), pipeline.Request{
			FilePath: path,
			Format:   format,
			Task:     task,
		}, sink)
		if err == nil {
			return
		}

		if sink.started() {
			// Streaming already began; the only option left is to terminate
			// the stream. The client must treat the abrupt close as failure.
			slog.Warn("stream aborted", "task", task, "error", err)
			return
		}

		var pe *pipeline.PhaseError
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			httpError(w, http.StatusBadRequest, "unsupported_format", "%v", err)
		case errors.As(err, &pe) && pe.Phase == pipeline.PhaseExtract:
			httpError(w, http.StatusUnprocessableEntity, "extraction_error", "failed to extract text: %v", pe.Err)
		default:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to generate %s: %v", task, err)
		}
	}
}

// saveUpload persists the multipart file to a temp file and returns its path.
func saveUpload(dir string, file io.Reader) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating upload dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing upload: %w", err)
	}
	return filepath.Clean(tmp.Name()), nil
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
