package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/haasonsaas/sitechat/internal/agent/providers"
	"github.com/haasonsaas/sitechat/internal/memory/embeddings/hashing"
	"github.com/haasonsaas/sitechat/internal/rag/kb"
	"github.com/haasonsaas/sitechat/pkg/models"
)

type fakeRetriever struct {
	context string
	err     error
	queries []string
}

func (f *fakeRetriever) Query(_ context.Context, text string) (string, error) {
	f.queries = append(f.queries, text)
	return f.context, f.err
}

type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_Start(t *testing.T) {
	e := NewEngine(nil, &fakeGenerator{}, Config{}, quietLogger())
	got := e.Start(42, "Ada")
	if want := "Hello Ada! Welcome to our company. How can I assist you?"; got != want {
		t.Errorf("Start() = %q, want %q", got, want)
	}
	if h := e.History(42); h == nil || len(h) != 0 {
		t.Errorf("History() = %#v, want empty non-nil history", h)
	}

	custom := NewEngine(nil, &fakeGenerator{}, Config{Greeting: "Hi {name}, welcome back {name}."}, quietLogger())
	if got := custom.Start(1, "Bo"); got != "Hi Bo, welcome back Bo." {
		t.Errorf("Start() = %q", got)
	}
}

func TestEngine_HandleBuildsPrompt(t *testing.T) {
	r := &fakeRetriever{context: "We open at nine."}
	g := &fakeGenerator{answer: "{{response_start}}Answer: We open at 9am.{{response_end}}"}
	e := NewEngine(r, g, Config{}, quietLogger())

	got := e.Handle(context.Background(), 7, "When do you open?")
	if got != "We open at 9am." {
		t.Errorf("Handle() = %q", got)
	}
	if len(r.queries) != 1 || r.queries[0] != "When do you open?" {
		t.Errorf("retriever queries = %q", r.queries)
	}
	prompt := g.prompts[0]
	for _, want := range []string{"Context:\nWe open at nine.\n", "Question: When do you open?\nAnswer:"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{history}") || strings.Contains(prompt, "Customer:") {
		t.Errorf("history rendered with PromptTurns = 0:\n%s", prompt)
	}

	h := e.History(7)
	if len(h) != 1 || h[0].Question != "When do you open?" || h[0].Answer != "We open at 9am." || h[0].At.IsZero() {
		t.Errorf("History() = %+v", h)
	}
}

func TestEngine_QuotaExceededFallback(t *testing.T) {
	quota := errors.New("Error 429, Message: Resource has been exhausted (e.g. check quota).")
	g := &fakeGenerator{err: &providers.GenerationError{
		Provider: "gemini", Model: "gemini-2.0-flash", Reason: providers.ReasonRateLimit, Status: 429,
		Err: fmt.Errorf("attempt 3: %w", quota),
	}}
	e := NewEngine(&fakeRetriever{context: "ctx"}, g, Config{}, quietLogger())

	got := e.Handle(context.Background(), 1, "hours?")
	want := "Sorry, I couldn't process this request. Error: " + quota.Error()
	if got != want {
		t.Errorf("Handle() = %q, want %q", got, want)
	}
	h := e.History(1)
	if len(h) != 1 || h[0].Answer != want || h[0].Question != "hours?" {
		t.Errorf("History() = %+v", h)
	}
}

func TestEngine_EmptyCorpusStillReplies(t *testing.T) {
	base, err := kb.Build(context.Background(), kb.Options{Embedder: hashing.New(32), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("kb.Build() error = %v", err)
	}
	tests := []struct {
		name   string
		answer string
		err    error
	}{
		{"model answers", "I don't know, please contact us.", nil},
		{"model says nothing", "   ", nil},
		{"model only emits markers", "{{response_start}}Answer:{{response_end}}", nil},
		{"model fails", "", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGenerator{answer: tt.answer, err: tt.err}
			e := NewEngine(base, g, Config{}, quietLogger())
			got := e.Handle(context.Background(), 5, "anything")
			if strings.TrimSpace(got) == "" {
				t.Fatal("Handle() returned an empty reply")
			}
			if !strings.Contains(g.prompts[0], "Context:\n\n") {
				t.Errorf("expected empty context in prompt:\n%s", g.prompts[0])
			}
		})
	}
}

func TestEngine_EmptyAnswerUsesNoAnswer(t *testing.T) {
	e := NewEngine(nil, &fakeGenerator{answer: "Answer:"}, Config{NoAnswer: "No idea."}, quietLogger())
	if got := e.Handle(context.Background(), 1, "q"); got != "No idea." {
		t.Errorf("Handle() = %q", got)
	}
}

func TestEngine_RetrievalErrorProceeds(t *testing.T) {
	g := &fakeGenerator{answer: "ok"}
	e := NewEngine(&fakeRetriever{context: "stale", err: errors.New("index offline")}, g, Config{}, quietLogger())
	if got := e.Handle(context.Background(), 1, "q"); got != "ok" {
		t.Errorf("Handle() = %q", got)
	}
	if strings.Contains(g.prompts[0], "stale") {
		t.Error("context from a failed retrieval reached the prompt")
	}
}

func TestEngine_NoGenerator(t *testing.T) {
	e := NewEngine(nil, nil, Config{}, quietLogger())
	got := e.Handle(context.Background(), 1, "q")
	if got != FallbackPrefix+"no generator configured" {
		t.Errorf("Handle() = %q", got)
	}
}

func TestEngine_PromptTurns(t *testing.T) {
	g := &fakeGenerator{answer: "a"}
	e := NewEngine(nil, g, Config{PromptTurns: 2}, quietLogger())
	ctx := context.Background()
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		e.Handle(ctx, 1, q)
	}
	last := g.prompts[3]
	if strings.Contains(last, "Customer: q1") {
		t.Errorf("oldest turn should be outside the window:\n%s", last)
	}
	if want := "Customer: q2\nAssistant: a\nCustomer: q3\nAssistant: a\n\nQuestion: q4"; !strings.Contains(last, want) {
		t.Errorf("prompt missing %q:\n%s", want, last)
	}
	if strings.Contains(g.prompts[0], "Customer:") {
		t.Errorf("first prompt has history:\n%s", g.prompts[0])
	}
}

func TestEngine_QuestionIsNotExpanded(t *testing.T) {
	g := &fakeGenerator{answer: "a"}
	e := NewEngine(&fakeRetriever{context: "secret ctx"}, g, Config{PromptTemplate: "{question}"}, quietLogger())
	e.Handle(context.Background(), 1, "what is {context}?")
	if g.prompts[0] != "what is {context}?" {
		t.Errorf("prompt = %q", g.prompts[0])
	}
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(nil, &fakeGenerator{answer: "a"}, Config{}, quietLogger())
	e.Handle(context.Background(), 1, "q")
	e.Handle(context.Background(), 2, "q")
	e.Reset(1)
	if h := e.History(1); h != nil {
		t.Errorf("History(1) after Reset = %+v", h)
	}
	if len(e.History(2)) != 1 {
		t.Error("Reset cleared another user's history")
	}
}

func TestEngine_ConcurrentHandle(t *testing.T) {
	e := NewEngine(nil, &fakeGenerator{answer: "a"}, Config{MaxTurns: 1000}, quietLogger())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.Handle(context.Background(), int64(i%3), fmt.Sprintf("q%d", i))
		}(i)
	}
	wg.Wait()
	total := 0
	for u := int64(0); u < 3; u++ {
		total += len(e.History(u))
	}
	if total != 50 {
		t.Errorf("recorded %d turns, want 50", total)
	}
}

func TestHistory_Bounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(9, models.Turn{Question: fmt.Sprint(i)})
	}
	got := h.Get(9)
	if len(got) != 3 || got[0].Question != "2" || got[2].Question != "4" {
		t.Errorf("Get() = %+v, want turns 2..4", got)
	}
	got[0].Question = "mutated"
	if h.Get(9)[0].Question != "2" {
		t.Error("Get() did not return a copy")
	}
	if last := h.Last(9, 2); len(last) != 2 || last[0].Question != "3" {
		t.Errorf("Last() = %+v", last)
	}
	if h.Last(9, 0) != nil {
		t.Error("Last(0) should be nil")
	}
	if h.Users() != 1 {
		t.Errorf("Users() = %d", h.Users())
	}
	if NewHistory(0).maxTurns != DefaultMaxTurns {
		t.Error("default max turns not applied")
	}
}

func TestClean(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  plain  ", "plain"},
		{"Answer: yes", "yes"},
		{"{{response_start}} Answer: yes {{response_end}}", "yes"},
		{"The Answer: is kept mid-sentence", "The Answer: is kept mid-sentence"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := clean(tt.in); got != tt.want {
			t.Errorf("clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
