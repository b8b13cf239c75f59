// Package config loads service configuration from compiled defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (later wins). A .env file in the working directory is loaded
// into the environment first.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Vector   VectorConfig   `yaml:"vector"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	AllowedOrigin  string `yaml:"allowed_origin"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	EmbedModel string `yaml:"embed_model"`
	ChatModel  string `yaml:"chat_model"`
}

type VectorConfig struct {
	// Backend selects the vector store implementation: "chromem" (in-process,
	// default) or "sqlite" (persistent).
	Backend string `yaml:"backend"`
	// Path is the storage directory for persistent backends; empty keeps
	// chromem purely in memory.
	Path string `yaml:"path"`
}

type PipelineConfig struct {
	TopK             int `yaml:"top_k"`
	NoteChunkSize    int `yaml:"note_chunk_size"`
	QuizChunkSize    int `yaml:"quiz_chunk_size"`
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			AllowedOrigin:  "http://localhost:3000",
			UploadDir:      "uploads",
			MaxUploadBytes: 25 << 20,
		},
		OpenAI: OpenAIConfig{
			EmbedModel: "text-embedding-ada-002",
			ChatModel:  "gpt-4o-mini",
		},
		Vector: VectorConfig{
			Backend: "chromem",
		},
		Pipeline: PipelineConfig{
			TopK:             5,
			NoteChunkSize:    3000,
			QuizChunkSize:    5000,
			EmbedConcurrency: 4,
		},
		LogLevel: "info",
	}
}

// Load reads configuration. path names an optional YAML file; an empty path
// skips the file layer. Environment variables override everything:
// OPENAI_API_KEY, CLIENT_URL and PORT are honoured directly, and any
// STUDYPAL_* variable overrides its corresponding key.
func Load(path string) (Config, error) {
	// Best-effort; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key (set OPENAI_API_KEY or STUDYPAL_OPENAI_API_KEY)")
	}
	switch cfg.Vector.Backend {
	case "chromem", "sqlite":
	default:
		return Config{}, fmt.Errorf("unknown vector backend %q (want chromem or sqlite)", cfg.Vector.Backend)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY", "STUDYPAL_OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "STUDYPAL_OPENAI_BASE_URL")
	setString(&cfg.OpenAI.EmbedModel, "STUDYPAL_EMBED_MODEL")
	setString(&cfg.OpenAI.ChatModel, "STUDYPAL_CHAT_MODEL")

	setString(&cfg.Server.AllowedOrigin, "CLIENT_URL", "STUDYPAL_CLIENT_URL")
	setString(&cfg.Server.UploadDir, "STUDYPAL_UPLOAD_DIR")
	setInt(&cfg.Server.Port, "PORT", "STUDYPAL_PORT")

	setString(&cfg.Vector.Backend, "STUDYPAL_VECTOR_BACKEND")
	setString(&cfg.Vector.Path, "STUDYPAL_VECTOR_PATH")

	setInt(&cfg.Pipeline.TopK, "STUDYPAL_TOP_K")
	setInt(&cfg.Pipeline.EmbedConcurrency, "STUDYPAL_EMBED_CONCURRENCY")

	setString(&cfg.LogLevel, "STUDYPAL_LOG_LEVEL")
}

// setString assigns the first non-empty environment variable to dst.
func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

// setInt assigns the first parseable environment variable to dst; values
// that fail to parse are ignored.
func setInt(dst *int, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
				return
			}
		}
	}
}
