package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := LogLevelFromString(tt.in); got != tt.want {
				t.Errorf("LogLevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Output: &buf})
	logger.Info("hello", "component", "crawler")

	if !strings.Contains(buf.String(), "component=crawler") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNewLogger_Redaction(t *testing.T) {
	token := "123456789:AAH" + strings.Repeat("x", 32)
	openaiKey := "sk-" + strings.Repeat("a", 48)

	tests := []struct {
		name   string
		log    func(*slog.Logger)
		secret string
	}{
		{
			name:   "message",
			log:    func(l *slog.Logger) { l.Info("using key " + openaiKey) },
			secret: openaiKey,
		},
		{
			name:   "string attr",
			log:    func(l *slog.Logger) { l.Info("request", "url", "https://api.telegram.org/bot"+token+"/getMe") },
			secret: token,
		},
		{
			name:   "error attr",
			log:    func(l *slog.Logger) { l.Error("failed", "error", errors.New("api_key="+strings.Repeat("k", 20))) },
			secret: strings.Repeat("k", 20),
		},
		{
			name:   "group attr",
			log:    func(l *slog.Logger) { l.Info("cfg", slog.Group("llm", slog.String("key", openaiKey))) },
			secret: openaiKey,
		},
		{
			name:   "bound attr",
			log:    func(l *slog.Logger) { l.With("token", openaiKey).Info("bound") },
			secret: openaiKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(LogConfig{Output: &buf}))
			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Errorf("secret leaked: %s", out)
			}
			if !strings.Contains(out, redacted) {
				t.Errorf("expected %s marker in %s", redacted, out)
			}
		})
	}
}

func TestNewLogger_CustomPattern(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf, RedactPatterns: []string{`customer-\d+`}})
	logger.Info("lookup", "who", "customer-4711")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["who"] != redacted {
		t.Errorf("who = %v, want %s", rec["who"], redacted)
	}
}

func TestNewLogger_NonStringAttrsUntouched(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Output: &buf}).Info("stats", "chunks", 12, "ok", true)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["chunks"] != float64(12) || rec["ok"] != true {
		t.Errorf("record = %v", rec)
	}
}
