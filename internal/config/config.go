// Package config loads sitechat's configuration from a YAML or JSON5 file,
// a .env file and the environment.
package config

import (
	"time"

	"github.com/haasonsaas/sitechat/internal/agent/providers"
	"github.com/haasonsaas/sitechat/internal/channels/telegram"
	"github.com/haasonsaas/sitechat/internal/conversation"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/internal/rag/chunker"
	"github.com/haasonsaas/sitechat/internal/rag/source"
)

// Config is the complete sitechat configuration.
type Config struct {
	Version      int                       `yaml:"version"`
	Telegram     telegram.Config           `yaml:"telegram"`
	LLM          providers.Config          `yaml:"llm"`
	Embeddings   embeddings.Config         `yaml:"embeddings"`
	Knowledge    KnowledgeConfig           `yaml:"knowledge"`
	Conversation conversation.Config       `yaml:"conversation"`
	Server       ServerConfig              `yaml:"server"`
	Logging      LoggingConfig             `yaml:"logging"`
	Tracing      observability.TraceConfig `yaml:"tracing"`
}

// KnowledgeConfig lists the knowledge sources and how they are indexed.
type KnowledgeConfig struct {
	// Website is the seed URL; the crawl stays under it.
	Website string `yaml:"website"`

	// DocumentsDir holds .txt and .pdf files.
	DocumentsDir string `yaml:"documents_dir"`

	S3 source.S3Config `yaml:"s3"`

	// PDFLicenseKey is the UniDoc metered license key.
	PDFLicenseKey string `yaml:"pdf_license_key"`

	Crawler   CrawlerConfig   `yaml:"crawler"`
	Chunking  chunker.Config  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// HasSource reports whether at least one knowledge source is configured.
func (k KnowledgeConfig) HasSource() bool {
	return k.Website != "" || k.DocumentsDir != "" || k.S3.Bucket != ""
}

type CrawlerConfig struct {
	MaxPages          int           `yaml:"max_pages"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type RetrievalConfig struct {
	TopK        int    `yaml:"top_k"`
	SegmentMode string `yaml:"segment_mode"`
	BatchSize   int    `yaml:"batch_size"`
}

// ServerConfig configures the admin HTTP server run by "serve".
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = providers.DefaultTimeout
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = providers.DefaultMaxAttempts
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "hashing"
	}

	k := &cfg.Knowledge
	if k.Crawler.MaxPages == 0 {
		k.Crawler.MaxPages = 500
	}
	if k.Crawler.Timeout == 0 {
		k.Crawler.Timeout = 30 * time.Second
	}
	if k.Crawler.MaxBodyBytes == 0 {
		k.Crawler.MaxBodyBytes = 10 << 20
	}
	if k.Crawler.RequestsPerSecond == 0 {
		k.Crawler.RequestsPerSecond = 5
	}
	if k.Crawler.Burst == 0 {
		k.Crawler.Burst = 1
	}
	if k.Chunking.ChunkSize == 0 {
		k.Chunking.ChunkSize = chunker.DefaultConfig().ChunkSize
		if k.Chunking.ChunkOverlap == 0 {
			k.Chunking.ChunkOverlap = chunker.DefaultConfig().ChunkOverlap
		}
	}
	if k.Retrieval.TopK == 0 {
		k.Retrieval.TopK = 4
	}
	if k.Retrieval.SegmentMode == "" {
		k.Retrieval.SegmentMode = "combined"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":9090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
