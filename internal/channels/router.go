// Package channels connects chat transports to the conversation engine.
//
// Transports turn their updates into an Inbound and call Dispatch, which
// routes commands and questions to a Responder and records metrics and a
// span for each message.
package channels

import (
	"context"
	"strings"

	"github.com/haasonsaas/sitechat/internal/observability"
	"github.com/haasonsaas/sitechat/pkg/models"
)

// Responder answers users. conversation.Engine implements it.
type Responder interface {
	Start(user int64, displayName string) string
	Handle(ctx context.Context, user int64, query string) string
	Reset(user int64)
}

// Message kinds, used as the metrics "kind" label.
const (
	KindStart    = "start"
	KindReset    = "reset"
	KindHelp     = "help"
	KindQuestion = "question"
	KindIgnored  = "ignored"
)

const (
	ResetReply = "Your conversation history has been cleared."
	HelpReply  = "Ask me anything about our company, products or services.\n/start - greeting\n/reset - forget our conversation"
)

// Inbound is a text message from a user.
type Inbound struct {
	Channel     models.ChannelType
	UserID      int64
	DisplayName string
	Text        string
}

// Dispatcher routes inbound messages to a Responder.
type Dispatcher struct {
	Responder Responder
	Metrics   *observability.Metrics
	Tracer    *observability.Tracer
}

// Dispatch answers msg. It returns the reply and the message kind; the reply
// is empty only for ignored messages.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Inbound) (string, string) {
	kind, _ := Classify(msg.Text)
	ctx, span := d.Tracer.TraceMessage(ctx, string(msg.Channel), kind)
	defer span.End()
	d.Metrics.MessageHandled(string(msg.Channel), kind)

	switch kind {
	case KindStart:
		name := msg.DisplayName
		if name == "" {
			name = "there"
		}
		return d.Responder.Start(msg.UserID, name), kind
	case KindReset:
		d.Responder.Reset(msg.UserID)
		return ResetReply, kind
	case KindHelp:
		return HelpReply, kind
	case KindQuestion:
		return d.Responder.Handle(ctx, msg.UserID, strings.TrimSpace(msg.Text)), kind
	default:
		return "", kind
	}
}

// Classify returns the kind of text and, for commands, the command name.
// Commands may carry a bot mention ("/start@my_bot"). Unknown commands and
// blank text are ignored.
func Classify(text string) (kind, command string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return KindIgnored, ""
	}
	if !strings.HasPrefix(text, "/") {
		return KindQuestion, ""
	}
	command = strings.Fields(text)[0][1:]
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	command = strings.ToLower(command)
	switch command {
	case "start":
		return KindStart, command
	case "reset":
		return KindReset, command
	case "help":
		return KindHelp, command
	default:
		return KindIgnored, command
	}
}
