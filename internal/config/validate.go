package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode names the command being configured; requirements differ per mode.
type Mode string

const (
	// ModeServe runs the Telegram bot.
	ModeServe Mode = "serve"
	// ModeIngest builds the knowledge base only.
	ModeIngest Mode = "ingest"
	// ModeAsk answers questions locally (ask, chat).
	ModeAsk Mode = "ask"
)

// ConfigurationError is a fatal configuration problem.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var hostedProviders = map[string]bool{"gemini": true, "openai": true, "anthropic": true}

var embeddingProviders = map[string]bool{"gemini": true, "openai": true, "ollama": true, "hashing": true}

// Validate checks cfg for mode and returns the first problem as a
// *ConfigurationError.
func (c *Config) Validate(mode Mode) error {
	k := c.Knowledge
	if !k.HasSource() {
		return invalid("knowledge", "at least one of website, documents_dir or s3.bucket is required")
	}
	if k.Website != "" {
		u, err := url.Parse(k.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("knowledge.website", "%q is not an http(s) URL", k.Website)
		}
	}
	if k.Chunking.ChunkSize <= 0 {
		return invalid("knowledge.chunking.chunk_size", "must be positive")
	}
	if k.Chunking.ChunkOverlap < 0 || k.Chunking.ChunkOverlap >= k.Chunking.ChunkSize {
		return invalid("knowledge.chunking.chunk_overlap", "must be at least 0 and less than chunk_size (%d)", k.Chunking.ChunkSize)
	}
	switch k.Retrieval.SegmentMode {
	case "combined", "per_source":
	default:
		return invalid("knowledge.retrieval.segment_mode", "must be combined or per_source, got %q", k.Retrieval.SegmentMode)
	}
	if k.Retrieval.TopK <= 0 {
		return invalid("knowledge.retrieval.top_k", "must be positive")
	}

	emb := strings.ToLower(c.Embeddings.Provider)
	if !embeddingProviders[emb] {
		return invalid("embeddings.provider", "unknown provider %q", c.Embeddings.Provider)
	}
	if (emb == "gemini" || emb == "openai") && c.Embeddings.APIKey == "" {
		return invalid("embeddings.api_key", "required for the %s provider", emb)
	}

	if mode == ModeServe || mode == ModeAsk {
		llm := providerName(c.LLM.Provider)
		if !hostedProviders[llm] {
			return invalid("llm.provider", "unknown provider %q", c.LLM.Provider)
		}
		if c.LLM.APIKey == "" {
			return invalid("llm.api_key", "required for the %s provider (set %s)", llm, providerKeyEnv[llm][0])
		}
	}

	if mode == ModeServe {
		if c.Telegram.Token == "" {
			return invalid("telegram.token", "required to serve (set TELEGRAM_BOT_TOKEN)")
		}
		if err := c.Telegram.Validate(); err != nil {
			return invalid("telegram", "%v", err)
		}
	}
	return nil
}
