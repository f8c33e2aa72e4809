package telegram

import (
	"context"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BotClient is the subset of *bot.Bot the adapter uses, so tests can
// substitute a mock.
type BotClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	GetMe(ctx context.Context) (*models.User, error)
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)

	// Start long-polls for updates until ctx is done.
	Start(ctx context.Context)

	// StartWebhook processes updates received by WebhookHandler until ctx
	// is done.
	StartWebhook(ctx context.Context)
	WebhookHandler() http.HandlerFunc
}

var _ BotClient = (*bot.Bot)(nil)
