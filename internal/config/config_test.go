package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Pipeline.NoteChunkSize != 3000 || cfg.Pipeline.QuizChunkSize != 5000 {
		t.Errorf("chunk sizes = %d/%d, want 3000/5000",
			cfg.Pipeline.NoteChunkSize, cfg.Pipeline.QuizChunkSize)
	}
	if cfg.Pipeline.TopK != 5 {
		t.Errorf("topK = %d, want 5", cfg.Pipeline.TopK)
	}
	if cfg.Vector.Backend != "chromem" {
		t.Errorf("backend = %q, want chromem", cfg.Vector.Backend)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STUDYPAL_OPENAI_API_KEY", "")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("err = %v, want missing API key error", err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
  allowed_origin: https://studypal.example
vector:
  backend: sqlite
  path: /tmp/vectors
pipeline:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.AllowedOrigin != "https://studypal.example" {
		t.Errorf("origin = %q", cfg.Server.AllowedOrigin)
	}
	if cfg.Vector.Backend != "sqlite" || cfg.Vector.Path != "/tmp/vectors" {
		t.Errorf("vector = %+v", cfg.Vector)
	}
	if cfg.Pipeline.TopK != 3 {
		t.Errorf("topK = %d, want 3", cfg.Pipeline.TopK)
	}
	// Unset file keys keep their defaults.
	if cfg.Pipeline.NoteChunkSize != 3000 {
		t.Errorf("note chunk size = %d, want default 3000", cfg.Pipeline.NoteChunkSize)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9999")
	t.Setenv("CLIENT_URL", "https://other.example")
	t.Setenv("STUDYPAL_VECTOR_BACKEND", "sqlite")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Server.AllowedOrigin != "https://other.example" {
		t.Errorf("origin = %q, want env override", cfg.Server.AllowedOrigin)
	}
	if cfg.Vector.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Vector.Backend)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STUDYPAL_VECTOR_BACKEND", "pinecone")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "vector backend") {
		t.Fatalf("err = %v, want unknown backend error", err)
	}
}

func TestBadIntEnvIgnored(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want default 5000", cfg.Server.Port)
	}
}
