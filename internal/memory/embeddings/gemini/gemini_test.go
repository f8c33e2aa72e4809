package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeEmbedClient struct {
	lastModel  string
	lastTask   string
	lastCount  int
	err        error
	dropResult bool
}

func (f *fakeEmbedClient) EmbedContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.lastModel = model
	f.lastTask = cfg.TaskType
	f.lastCount = len(contents)
	if f.err != nil {
		return nil, f.err
	}
	resp := &genai.EmbedContentResponse{}
	for i, c := range contents {
		if f.dropResult && i == len(contents)-1 {
			break
		}
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{
			Values: []float32{float32(len(c.Parts[0].Text))},
		})
	}
	return resp, nil
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := newWithClient(&fakeEmbedClient{}, Config{})
	if p.model != "text-embedding-004" {
		t.Errorf("model = %q, want text-embedding-004", p.model)
	}
	if p.Dimension() != 768 {
		t.Errorf("Dimension() = %d, want 768", p.Dimension())
	}
	if p.Name() != "gemini" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestProvider_TaskTypes(t *testing.T) {
	fake := &fakeEmbedClient{}
	p := newWithClient(fake, Config{})

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("EmbedBatch error: %v", err)
	}
	if fake.lastTask != taskDocument {
		t.Errorf("batch task = %q, want %q", fake.lastTask, taskDocument)
	}
	if len(vecs) != 2 || vecs[1][0] != 3 {
		t.Errorf("EmbedBatch() = %v", vecs)
	}

	if _, err := p.Embed(context.Background(), "query"); err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if fake.lastTask != taskQuery {
		t.Errorf("query task = %q, want %q", fake.lastTask, taskQuery)
	}
}

func TestProvider_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := newWithClient(&fakeEmbedClient{err: boom}, Config{})
	if _, err := p.Embed(context.Background(), "q"); !errors.Is(err, boom) {
		t.Errorf("Embed() error = %v, want wrapping %v", err, boom)
	}

	p = newWithClient(&fakeEmbedClient{dropResult: true}, Config{})
	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error for short response")
	}
}
