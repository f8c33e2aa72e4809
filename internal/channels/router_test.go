package channels

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/pkg/models"
)

type echoResponder struct {
	reset int64
}

func (e *echoResponder) Start(user int64, name string) string { return "hi " + name }
func (e *echoResponder) Handle(_ context.Context, user int64, q string) string {
	return "re: " + q
}
func (e *echoResponder) Reset(user int64) { e.reset = user }

func TestClassify(t *testing.T) {
	tests := []struct {
		text    string
		kind    string
		command string
	}{
		{"/start", KindStart, "start"},
		{"/START@SiteChatBot", KindStart, "start"},
		{"/reset now", KindReset, "reset"},
		{"/help", KindHelp, "help"},
		{"/unknown", KindIgnored, "unknown"},
		{"   ", KindIgnored, ""},
		{"what is /start?", KindQuestion, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			kind, cmd := Classify(tt.text)
			if kind != tt.kind || cmd != tt.command {
				t.Errorf("Classify(%q) = %q, %q; want %q, %q", tt.text, kind, cmd, tt.kind, tt.command)
			}
		})
	}
}

func TestDispatcher(t *testing.T) {
	r := &echoResponder{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := &Dispatcher{Responder: r, Metrics: metrics}
	ctx := context.Background()

	tests := []struct {
		text      string
		wantReply string
		wantKind  string
	}{
		{"/start", "hi Ana", KindStart},
		{" price? ", "re: price?", KindQuestion},
		{"/reset", ResetReply, KindReset},
		{"/nope", "", KindIgnored},
	}
	for _, tt := range tests {
		reply, kind := d.Dispatch(ctx, Inbound{Channel: models.ChannelConsole, UserID: 3, DisplayName: "Ana", Text: tt.text})
		if reply != tt.wantReply || kind != tt.wantKind {
			t.Errorf("Dispatch(%q) = %q, %q; want %q, %q", tt.text, reply, kind, tt.wantReply, tt.wantKind)
		}
	}
	if r.reset != 3 {
		t.Errorf("Reset user = %d, want 3", r.reset)
	}
	if got := testutil.ToFloat64(metrics.Messages.WithLabelValues("console", KindIgnored)); got != 1 {
		t.Errorf("ignored messages = %v, want 1", got)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "  ", 10, nil},
		{"fits", "short", 10, []string{"short"}},
		{"paragraph", "first para\n\nsecond para", 15, []string{"first para", "second para"}},
		{"line", "line one\nline two", 12, []string{"line one", "line two"}},
		{"sentence", "One two. Three four.", 12, []string{"One two.", "Three four."}},
		{"word", "alpha beta gamma", 11, []string{"alpha beta", "gamma"}},
		{"hard", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"no limit", "anything goes", 0, []string{"anything goes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Split(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestSplit_RuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語", 10)
	for _, part := range Split(text, 7) {
		if !utf8.ValidString(part) {
			t.Fatalf("invalid UTF-8 part %q", part)
		}
		if len(part) > 7 {
			t.Fatalf("part %q longer than 7 bytes", part)
		}
	}
	// A limit smaller than one rune still makes progress.
	if got := Split("日本", 1); len(got) != 2 {
		t.Errorf("Split with tiny limit = %q", got)
	}
}

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		err       error
		want      ErrorCode
		retryable bool
	}{
		{errors.New("Too Many Requests: retry after 3"), ErrCodeRateLimit, true},
		{errors.New("error 401 unauthorized"), ErrCodeAuthentication, false},
		{context.DeadlineExceeded, ErrCodeTimeout, true},
		{errors.New("dial tcp: connection refused"), ErrCodeConnection, true},
		{errors.New("Forbidden: bot was blocked by the user"), ErrCodeBlocked, false},
		{errors.New("bad request"), ErrCodeSend, false},
	}
	for _, tt := range tests {
		got := ClassifySendError(tt.err)
		if got.Code != tt.want || IsRetryable(got) != tt.retryable {
			t.Errorf("ClassifySendError(%v) = %s retryable=%v, want %s retryable=%v", tt.err, got.Code, IsRetryable(got), tt.want, tt.retryable)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("ClassifySendError(%v) lost the cause", tt.err)
		}
	}
	if ClassifySendError(nil) != nil {
		t.Error("ClassifySendError(nil) != nil")
	}
	existing := ErrConfig("bad", nil)
	if ClassifySendError(existing) != existing {
		t.Error("existing channel error was re-wrapped")
	}
}

func TestError_Format(t *testing.T) {
	err := ErrSend("failed", errors.New("boom")).WithContext("chat_id", 5)
	if err.Error() != "send: failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Context["chat_id"] != 5 {
		t.Errorf("Context = %v", err.Context)
	}
	if GetErrorCode(errors.New("plain")) != ErrCodeInternal {
		t.Error("plain errors should be internal")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
