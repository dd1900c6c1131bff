package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the environment-supplied configuration, read once at startup.
type Config struct {
	Port   string
	APIKey string // optional; empty disables request auth

	// Embeddings endpoint (OpenAI-compatible). One fixed model per index.
	EmbeddingsBaseURL string
	EmbeddingsAPIKey  string
	EmbeddingModel    string
	EmbedTimeout      time.Duration

	// Chat completions endpoint (OpenAI-compatible, e.g. Groq).
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Vector index persistence.
	DataDir string

	// Chunking.
	ChunkSize    int
	ChunkOverlap int

	// Retrieval.
	DefaultTopK         int
	SimilarityThreshold float64
	MaxContextChars     int

	// Generation.
	Temperature     float64
	MaxOutputTokens int

	// Upload limits and ingestion parallelism.
	MaxUploadBytes    int64
	IngestParallelism int

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads configuration from the environment with documented defaults.
func Load() Config {
	return Config{
		Port:   envOr("PORT", "8000"),
		APIKey: os.Getenv("DOCCHAT_API_KEY"),

		EmbeddingsBaseURL: envOr("EMBEDDINGS_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingsAPIKey:  os.Getenv("EMBEDDINGS_API_KEY"),
		EmbeddingModel:    envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbedTimeout:      envDuration("EMBED_TIMEOUT", 30*time.Second),

		LLMBaseURL: envOr("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   envOr("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeout: envDuration("LLM_TIMEOUT", 120*time.Second),

		DataDir: envOr("DATA_DIR", "docchat_store"),

		ChunkSize:    envInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		DefaultTopK:         envInt("DEFAULT_TOP_K", 3),
		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0),
		MaxContextChars:     envInt("MAX_CONTEXT_CHARS", 8000),

		Temperature:     envFloat("TEMPERATURE", 0.1),
		MaxOutputTokens: envInt("MAX_OUTPUT_TOKENS", 1024),

		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		IngestParallelism: envInt("INGEST_PARALLELISM", 4),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", false),
	}
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.EmbeddingsAPIKey == "" {
		return fmt.Errorf("EMBEDDINGS_API_KEY is required")
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < chunk size")
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("DEFAULT_TOP_K must be positive")
	}
	if c.IngestParallelism <= 0 {
		return fmt.Errorf("INGEST_PARALLELISM must be positive")
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
