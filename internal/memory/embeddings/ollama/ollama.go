// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/sitechat/internal/memory/embeddings"
)

const (
	defaultURL   = "http://localhost:11434"
	defaultModel = "nomic-embed-text"
)

// knownDimensions holds native sizes for common embedding models.
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,
}

// Config contains configuration for the Ollama provider.
type Config struct {
	BaseURL string
	Model   string

	// Dimension is required for models missing from the built-in table.
	Dimension int

	// KeepAlive is forwarded as keep_alive, e.g. "10m" to keep the model
	// loaded through a long ingest.
	KeepAlive string

	Timeout time.Duration
}

// Provider implements embeddings.Provider over /api/embed.
type Provider struct {
	endpoint  string
	model     string
	dimension int
	keepAlive string
	client    *http.Client
}

var _ embeddings.Provider = (*Provider)(nil)

// New creates an Ollama provider.
func New(cfg Config) (*Provider, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		// Tags such as "nomic-embed-text:latest" share the base model's size.
		name, _, _ := strings.Cut(model, ":")
		dim = knownDimensions[name]
	}
	if dim <= 0 {
		return nil, fmt.Errorf("ollama: dimension required for model %q", model)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Provider{
		endpoint:  base + "/api/embed",
		model:     model,
		dimension: dim,
		keepAlive: cfg.KeepAlive,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (p *Provider) Name() string      { return "ollama" }
func (p *Provider) Dimension() int    { return p.dimension }
func (p *Provider) MaxBatchSize() int { return 64 }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in one request. Inputs longer than the model's
// context are truncated by the server instead of failing the batch.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{
		Model:     p.model,
		Input:     texts,
		Truncate:  true,
		KeepAlive: p.keepAlive,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("ollama: %s: %s", resp.Status, e.Error)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	for i, v := range out.Embeddings {
		if len(v) != p.dimension {
			return nil, fmt.Errorf("ollama: embedding %d has dimension %d, want %d", i, len(v), p.dimension)
		}
	}
	return out.Embeddings, nil
}

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	Truncate  bool     `json:"truncate"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
