package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Keywords KeywordsConfig `yaml:"keywords"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

type ServerConfig struct {
	Port   string `yaml:"port"`
	APIKey string `yaml:"-"` // env only, never in the file
}

type QdrantConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"-"` // env only
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type EmbedderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"-"` // env only
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"-"` // env only
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RAGConfig struct {
	ChapterTopK        int     `yaml:"chapter_top_k"`
	SelectRatio        float64 `yaml:"select_ratio"`
	ChapterFloor       float64 `yaml:"chapter_floor"`
	ContextFloor       float64 `yaml:"context_floor"`
	PassagesPerChapter int     `yaml:"passages_per_chapter"`
	ContextPassages    int     `yaml:"context_passages"`
}

type ChunkerConfig struct {
	MaxChars int `yaml:"max_chars"`
}

type KeywordsConfig struct {
	TopK int `yaml:"top_k"`
}

type IngestConfig struct {
	WorkerCount    int           `yaml:"worker_count"`
	MaxQueueSize   int           `yaml:"max_queue_size"`
	MaxConcurrent  int           `yaml:"max_concurrent_embed"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	JobTTL         time.Duration `yaml:"job_ttl"`
}

// Load assembles the runtime configuration: compiled defaults, then the
// optional YAML file at path (or CONFIG_PATH), then environment overrides.
// Secrets come from the environment only.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Server.Port = envOr("PORT", cfg.Server.Port)
	cfg.Server.APIKey = os.Getenv("MANUALQA_API_KEY")

	cfg.Qdrant.URL = envOr("QDRANT_URL", cfg.Qdrant.URL)
	cfg.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	cfg.Qdrant.Collection = envOr("QDRANT_COLLECTION", cfg.Qdrant.Collection)

	cfg.Embedder.BaseURL = envOr("EMBEDDING_BASE_URL", cfg.Embedder.BaseURL)
	cfg.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Embedder.Model = envOr("EMBEDDING_MODEL", cfg.Embedder.Model)

	cfg.LLM.BaseURL = envOr("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = envOr("LLM_API_KEY", os.Getenv("OPENAI_API_KEY"))
	cfg.LLM.Model = envOr("LLM_MODEL", cfg.LLM.Model)

	cfg.RAG.ChapterTopK = envInt("RAG_CHAPTER_TOP_K", cfg.RAG.ChapterTopK)
	cfg.RAG.SelectRatio = envFloat("RAG_SELECT_RATIO", cfg.RAG.SelectRatio)
	cfg.RAG.ChapterFloor = envFloat("RAG_CHAPTER_FLOOR", cfg.RAG.ChapterFloor)
	cfg.RAG.ContextFloor = envFloat("RAG_CONTEXT_FLOOR", cfg.RAG.ContextFloor)

	cfg.Chunker.MaxChars = envInt("CHUNK_MAX_CHARS", cfg.Chunker.MaxChars)
	cfg.Keywords.TopK = envInt("KEYWORD_TOP_K", cfg.Keywords.TopK)

	cfg.Ingest.WorkerCount = envInt("WORKER_COUNT", cfg.Ingest.WorkerCount)
	cfg.Ingest.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.Ingest.MaxQueueSize)
	cfg.Ingest.MaxConcurrent = envInt("MAX_CONCURRENT_EMBED", cfg.Ingest.MaxConcurrent)
	cfg.Ingest.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.Ingest.MaxUploadBytes)
	cfg.Ingest.JobTTL = envDuration("JOB_TTL", cfg.Ingest.JobTTL)

	cfg.clamp()
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8090"},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "manual_chunks",
			Timeout:    15 * time.Second,
		},
		Embedder: EmbedderConfig{
			Model:   "text-embedding-3-small",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		RAG: RAGConfig{
			ChapterTopK:        5,
			SelectRatio:        0.85,
			ChapterFloor:       0.40,
			ContextFloor:       0.75,
			PassagesPerChapter: 2,
			ContextPassages:    3,
		},
		Chunker:  ChunkerConfig{MaxChars: 2000},
		Keywords: KeywordsConfig{TopK: 5},
		Ingest: IngestConfig{
			WorkerCount:    2,
			MaxQueueSize:   50,
			MaxConcurrent:  5,
			MaxUploadBytes: 52428800, // 50MB
			JobTTL:         1 * time.Hour,
		},
	}
}

func (c *Config) clamp() {
	if c.RAG.ChapterTopK <= 0 {
		c.RAG.ChapterTopK = 5
	}
	if c.RAG.SelectRatio <= 0 || c.RAG.SelectRatio > 1 {
		c.RAG.SelectRatio = 0.85
	}
	if c.RAG.PassagesPerChapter <= 0 {
		c.RAG.PassagesPerChapter = 2
	}
	if c.RAG.ContextPassages <= 0 {
		c.RAG.ContextPassages = 3
	}
	if c.Chunker.MaxChars <= 0 {
		c.Chunker.MaxChars = 2000
	}
	if c.Keywords.TopK <= 0 {
		c.Keywords.TopK = 5
	}
	if c.Ingest.WorkerCount <= 0 {
		c.Ingest.WorkerCount = 2
	}
	if c.Ingest.MaxQueueSize <= 0 {
		c.Ingest.MaxQueueSize = 50
	}
	if c.Ingest.MaxConcurrent <= 0 {
		c.Ingest.MaxConcurrent = 5
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = 52428800
	}
	if c.Ingest.JobTTL <= 0 {
		c.Ingest.JobTTL = 1 * time.Hour
	}
}

func (c Config) Validate() error {
	if c.Embedder.APIKey == "" && c.Embedder.BaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY is required unless EMBEDDING_BASE_URL points at a local server")
	}
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_API_KEY or OPENAI_API_KEY is required unless LLM_BASE_URL points at a local server")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
