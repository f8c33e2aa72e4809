package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantEndpoint string
		wantDim      int
		wantErr      bool
	}{
		{name: "defaults", cfg: Config{}, wantEndpoint: "http://localhost:11434/api/embed", wantDim: 768},
		{name: "trailing slash", cfg: Config{BaseURL: "http://gpu:8080/", Model: "all-minilm"}, wantEndpoint: "http://gpu:8080/api/embed", wantDim: 384},
		{name: "tagged model", cfg: Config{Model: "mxbai-embed-large:latest"}, wantEndpoint: "http://localhost:11434/api/embed", wantDim: 1024},
		{name: "explicit dimension", cfg: Config{Model: "custom", Dimension: 42}, wantEndpoint: "http://localhost:11434/api/embed", wantDim: 42},
		{name: "unknown model", cfg: Config{Model: "custom"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if p.endpoint != tt.wantEndpoint {
				t.Errorf("endpoint = %q, want %q", p.endpoint, tt.wantEndpoint)
			}
			if p.Dimension() != tt.wantDim {
				t.Errorf("Dimension() = %d, want %d", p.Dimension(), tt.wantDim)
			}
		})
	}
}

func TestEmbedBatch(t *testing.T) {
	var got embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embed" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		var out embedResponse
		for i := range got.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, Model: "tiny", Dimension: 2, KeepAlive: "10m"})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Errorf("EmbedBatch() = %v", vecs)
	}
	if got.Model != "tiny" || !got.Truncate || got.KeepAlive != "10m" {
		t.Errorf("request = %+v", got)
	}
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "server error message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"model \"tiny\" not found"}`))
			},
			wantMsg: `model "tiny" not found`,
		},
		{
			name: "plain text error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal error"))
			},
			wantMsg: "internal error",
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 0}}})
			},
			wantMsg: "got 1 embeddings for 2 inputs",
		},
		{
			name: "wrong dimension",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 0}, {1}}})
			},
			wantMsg: "embedding 1 has dimension 1",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantMsg: "decode response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p, _ := New(Config{BaseURL: srv.URL, Model: "tiny", Dimension: 2})
			_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	p, _ := New(Config{})
	if vecs, err := p.EmbedBatch(context.Background(), nil); vecs != nil || err != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v", vecs, err)
	}
}
