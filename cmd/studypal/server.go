package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vincentnw/studypal/internal/api"
	"github.com/vincentnw/studypal/internal/config"
	"github.com/vincentnw/studypal/internal/embedding"
	"github.com/vincentnw/studypal/internal/extract"
	"github.com/vincentnw/studypal/internal/generate"
	"github.com/vincentnw/studypal/internal/pipeline"
	"github.com/vincentnw/studypal/internal/vectorstore"
	"github.com/vincentnw/studypal/internal/vectorstore/chromem"
	"github.com/vincentnw/studypal/internal/vectorstore/sqlitevec"
)

func runServer(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "studypal version %s\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.NewOpenAI(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EmbedModel)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}
	gen, err := generate.NewOpenAI(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		return fmt.Errorf("building generator: %w", err)
	}

	var store vectorstore.Store
	switch cfg.Vector.Backend {
	case "sqlite":
		s, err := sqlitevec.Open(cfg.Vector.Path)
		if err != nil {
			return fmt.Errorf("opening vector store: %w", err)
		}
		defer func() {
			if err := s.Close(); err != nil {
				slog.Warn("closing vector store", "error", err)
			}
		}()
		store = s
	default:
		s, err := chromem.New(cfg.Vector.Path)
		if err != nil {
			return fmt.Errorf("opening vector store: %w", err)
		}
		store = s
	}

	p := pipeline.New(extract.Text, embedder, store, gen, pipeline.Options{
		TopK:             cfg.Pipeline.TopK,
		NoteChunkSize:    cfg.Pipeline.NoteChunkSize,
		QuizChunkSize:    cfg.Pipeline.QuizChunkSize,
		EmbedConcurrency: cfg.Pipeline.EmbedConcurrency,
	})

	handler := api.NewHandler(api.Deps{
		Runner:         p,
		UploadDir:      cfg.Server.UploadDir,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("studypal listening", "addr", addr, "vector_backend", cfg.Vector.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logLevel(name string) slog.Level {
	switch {
	case strings.EqualFold(name, "debug"):
		return slog.LevelDebug
	case strings.EqualFold(name, "warn"):
		return slog.LevelWarn
	case strings.EqualFold(name, "error"):
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
