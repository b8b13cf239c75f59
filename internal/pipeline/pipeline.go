// Package pipeline orchestrates one study-aid generation request: extract
// text, chunk it, embed the chunks, stage them in the vector store, then for
// each chunk retrieve related context, call the generative model, accumulate
// the artifact and emit a progress event. Vectors and the uploaded temp file
// are cleaned up when the run exits, however it exits.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vincentnw/studypal/internal/chunker"
	"github.com/vincentnw/studypal/internal/composer"
	"github.com/vincentnw/studypal/internal/embedding"
	"github.com/vincentnw/studypal/internal/extract"
	"github.com/vincentnw/studypal/internal/generate"
	"github.com/vincentnw/studypal/internal/vectorstore"
)

// ExtractFunc turns an uploaded file into plain text.
type ExtractFunc func(path string, format extract.Format) (string, error)

// Request describes one uploaded document to process.
type Request struct {
	// FilePath is the temp file holding the upload. The pipeline removes it
	// during cleanup; pass an empty string if there is nothing to remove.
	FilePath string
	Format   extract.Format
	Task     generate.Task
}

// Artifact is the accumulated task output of one request. Exactly one of
// the payload fields is meaningful, selected by Task.
type Artifact struct {
	Task       generate.Task
	Notes      string
	Flashcards []string
	Quizzes    []generate.QuizQuestion
}

// Sink receives the events streamed to the client. Progress is emitted once
// before the first chunk (0) and once after each chunk; Result carries the
// final artifact and is always the last call.
type Sink interface {
	Progress(pct int) error
	Result(artifact Artifact) error
}

// Options configures a Pipeline. Zero values fall back to the documented
// defaults.
type Options struct {
	TopK             int // related chunks per query (default 5)
	NoteChunkSize    int // notes/flashcards chunk size in characters (default 3000)
	QuizChunkSize    int // quiz chunk size in characters (default 5000)
	EmbedConcurrency int // bound on in-flight embedding calls (default 4)
	Logger           *slog.Logger
}

// Pipeline drives the full per-request sequence against its injected
// collaborators.
type Pipeline struct {
	extract  ExtractFunc
	embedder embedding.Embedder
	store    vectorstore.Store
	gen      generate.Generator
	opts     Options
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(extractFn ExtractFunc, embedder embedding.Embedder, store vectorstore.Store, gen generate.Generator, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.NoteChunkSize <= 0 {
		opts.NoteChunkSize = 3000
	}
	if opts.QuizChunkSize <= 0 {
		opts.QuizChunkSize = 5000
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extract:  extractFn,
		embedder: embedder,
		store:    store,
		gen:      gen,
		opts:     opts,
		logger:   logger,
	}
}

func (p *Pipeline) chunkSize(task generate.Task) int {
	if task == generate.TaskQuiz {
		return p.opts.QuizChunkSize
	}
	return p.opts.NoteChunkSize
}

// Run processes one request, emitting events to sink. Each run gets a fresh
// namespace in the vector store so concurrent requests never observe each
// other's vectors.
//
// Generation transport errors abort the whole request for every task; only a
// quiz response that fails to parse is skipped, because a partial artifact
// with an invisible gap would mislead the user while an unusable payload for
// one chunk is recoverable.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) error {
	start := time.Now()
	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID, "task", req.Task)

	var upserted []string
	defer func() {
		// Best-effort cleanup, after the result has been emitted. The client
		// never waits on this and its failures are logged only. Runs under a
		// detached context so a client disconnect cannot strand vectors or
		// the temp file.
		p.cleanup(context.WithoutCancel(ctx), logger, requestID, upserted, req.FilePath)
		logger.Debug("pipeline finished", "duration_ms", time.Since(start).Milliseconds())
	}()

	text, err := p.extract(req.FilePath, req.Format)
	if err != nil {
		return &PhaseError{Phase: PhaseExtract, Err: err}
	}

	chunks := chunker.Split(text, p.chunkSize(req.Task))
	logger.Info("document chunked", "chunks", len(chunks), "chars", len(text))

	artifact := Artifact{Task: req.Task}
	var notes []string

	if len(chunks) == 0 {
		// Nothing to study: no model calls, just the terminal empty artifact.
		if err := sink.Progress(0); err != nil {
			return err
		}
		return sink.Result(artifact)
	}

	embedded, err := embedding.EmbedAll(ctx, p.embedder, chunks, p.opts.EmbedConcurrency)
	if err != nil {
		return &PhaseError{Phase: PhaseEmbed, Err: err}
	}

	records := make([]vectorstore.Record, len(embedded))
	ids := make([]string, len(embedded))
	for i, ec := range embedded {
		ids[i] = vectorID(requestID, ec.Index)
		records[i] = vectorstore.Record{
			ID:        ids[i],
			Text:      ec.Text,
			Embedding: ec.Vector,
		}
	}
	if err := p.store.Upsert(ctx, requestID, records); err != nil {
		return &PhaseError{Phase: PhaseUpsert, Err: err}
	}
	upserted = ids

	if err := sink.Progress(0); err != nil {
		return err
	}

	total := len(embedded)
	for i, ec := range embedded {
		// A disconnected client stops further chunks from being scheduled,
		// but the chunk already in flight is allowed to finish.
		if err := ctx.Err(); err != nil {
			logger.Warn("request cancelled mid-stream", "chunks_done", i, "total", total)
			return err
		}
		opCtx := context.WithoutCancel(ctx)

		related, err := p.store.Query(opCtx, requestID, ec.Vector, p.opts.TopK)
		if err != nil {
			return &PhaseError{Phase: PhaseQuery, Err: err}
		}

		enriched := composer.Compose(ec.Text, composer.Texts(related))
		raw, err := p.gen.Generate(opCtx, req.Task, enriched)
		if err != nil {
			return &PhaseError{Phase: PhaseGenerate, Err: err}
		}

		switch req.Task {
		case generate.TaskNotes:
			notes = append(notes, generate.ParseNotes(raw))
			artifact.Notes = strings.Join(notes, "\n")
		case generate.TaskFlashcards:
			artifact.Flashcards = append(artifact.Flashcards, generate.ParseFlashcards(raw)...)
		case generate.TaskQuiz:
			questions, err := generate.ParseQuiz(raw)
			if err != nil {
				logger.Warn("skipping malformed quiz output", "chunk", ec.Index, "error", err)
			} else {
				artifact.Quizzes = append(artifact.Quizzes, questions...)
			}
		}

		if err := sink.Progress(progressPct(i+1, total)); err != nil {
			return err
		}
		logger.Debug("chunk processed", "chunk", ec.Index, "total", total)
	}

	return sink.Result(artifact)
}

// cleanup deletes this request's vectors and temp file. Failures are logged,
// never propagated: by the time cleanup runs the client-visible outcome is
// already determined.
func (p *Pipeline) cleanup(ctx context.Context, logger *slog.Logger, namespace string, ids []string, filePath string) {
	if len(ids) > 0 {
		if err := p.store.Delete(ctx, namespace, ids); err != nil {
			logger.Warn("vector cleanup failed", "namespace", namespace, "error", err)
		}
	}
	if filePath != "" {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("temp file cleanup failed", "path", filePath, "error", err)
		}
	}
}

func vectorID(requestID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", requestID, index)
}

func progressPct(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
