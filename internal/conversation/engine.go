// Package conversation answers user questions from the knowledge base and a
// text generator, keeping a bounded per-user history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/sitechat/internal/agent/providers"
	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/pkg/models"
)

const (
	DefaultGreeting = "Hello {name}! Welcome to our company. How can I assist you?"

	DefaultNoAnswer = "I'm sorry, I couldn't find an answer to that. Please try rephrasing your question."

	// FallbackPrefix starts the reply sent when generation fails.
	FallbackPrefix = "Sorry, I couldn't process this request. Error: "

	DefaultPromptTemplate = `You are a friendly customer service assistant for the company described in the context below.
Answer the customer's question using only the information in the context.
If the context does not contain the answer, say you don't know and suggest contacting the company directly.
Keep the answer short and do not mention the context itself.

Context:
{context}

{history}Question: {question}
Answer:`
)

// Retriever returns the knowledge base context for a question.
type Retriever interface {
	Query(ctx context.Context, text string) (string, error)
}

// Config tunes the engine's replies.
type Config struct {
	// Greeting is the /start reply. {name} is replaced by the user's name.
	Greeting string `yaml:"greeting"`

	// PromptTemplate is rendered with {context}, {question} and {history}.
	PromptTemplate string `yaml:"prompt_template"`

	// NoAnswer replaces an empty model answer.
	NoAnswer string `yaml:"no_answer"`

	MaxTurns int `yaml:"max_turns"`

	// PromptTurns is how many recent turns are rendered into {history}.
	PromptTurns int `yaml:"prompt_turns"`
}

func (c *Config) applyDefaults() {
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
	if c.PromptTemplate == "" {
		c.PromptTemplate = DefaultPromptTemplate
	}
	if c.NoAnswer == "" {
		c.NoAnswer = DefaultNoAnswer
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.PromptTurns < 0 {
		c.PromptTurns = 0
	}
}

// Engine turns questions into answers. It is safe for concurrent use.
type Engine struct {
	retriever Retriever
	generator providers.Generator
	config    Config
	history   *History
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine. A nil logger uses slog.Default().
func NewEngine(retriever Retriever, generator providers.Generator, cfg Config, logger *slog.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		retriever: retriever,
		generator: generator,
		config:    cfg,
		history:   NewHistory(cfg.MaxTurns),
		logger:    logger.With("component", "conversation"),
		now:       time.Now,
	}
}

// Start initializes user's history and returns the greeting.
func (e *Engine) Start(user int64, displayName string) string {
	e.history.Ensure(user)
	return strings.ReplaceAll(e.config.Greeting, "{name}", displayName)
}

// Handle answers query for user. The reply is never empty: generation
// failures produce a fallback reply carrying the underlying error message.
func (e *Engine) Handle(ctx context.Context, user int64, query string) string {
	e.history.Ensure(user)

	var knowledge string
	if e.retriever != nil {
		var err error
		knowledge, err = e.retriever.Query(ctx, query)
		if err != nil {
			e.logger.Warn("retrieval failed, answering without context",
				"user", user, "trace_id", observability.TraceID(ctx), "error", err)
			knowledge = ""
		}
	}

	prompt := e.prompt(user, knowledge, query)
	answer, err := e.generate(ctx, prompt)
	if err != nil {
		e.logger.Error("generation failed", "user", user, "trace_id", observability.TraceID(ctx), "error", err)
		answer = FallbackPrefix + rootCause(err).Error()
	} else {
		answer = clean(answer)
		if answer == "" {
			answer = e.config.NoAnswer
		}
	}

	e.history.Append(user, models.Turn{Question: query, Answer: answer, At: e.now()})
	return answer
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.generator == nil {
		return "", errors.New("no generator configured")
	}
	return e.generator.Generate(ctx, prompt)
}

// Reset clears user's history.
func (e *Engine) Reset(user int64) {
	e.history.Reset(user)
}

// History returns a copy of user's turns, oldest first.
func (e *Engine) History(user int64) []models.Turn {
	return e.history.Get(user)
}

func (e *Engine) prompt(user int64, knowledge, question string) string {
	var past strings.Builder
	for _, t := range e.history.Last(user, e.config.PromptTurns) {
		fmt.Fprintf(&past, "Customer: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	if past.Len() > 0 {
		past.WriteString("\n")
	}
	return strings.NewReplacer(
		"{context}", knowledge,
		"{history}", past.String(),
		"{question}", question,
	).Replace(e.config.PromptTemplate)
}

var markers = strings.NewReplacer("{{response_start}}", "", "{{response_end}}", "")

// clean strips response markers and a leading "Answer:" label.
func clean(answer string) string {
	answer = strings.TrimSpace(markers.Replace(answer))
	answer = strings.TrimPrefix(answer, "Answer:")
	return strings.TrimSpace(answer)
}

// rootCause follows the Unwrap chain to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
