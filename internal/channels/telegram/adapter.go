// Package telegram serves the conversation engine over a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/haasonsaas/sitechat/internal/channels"
	"github.com/haasonsaas/sitechat/internal/observability"
	sitemodels "github.com/haasonsaas/sitechat/pkg/models"
)

// Mode selects how updates are received.
type Mode string

const (
	ModeLongPolling Mode = "long_polling"
	ModeWebhook     Mode = "webhook"
)

// MaxMessageLength is Telegram's limit for one text message.
const MaxMessageLength = 4096

// Config holds configuration for the Telegram adapter.
type Config struct {
	// Token is the bot token from @BotFather (required)
	Token string `yaml:"token"`

	// Mode defaults to webhook when WebhookURL is set, else long polling.
	Mode Mode `yaml:"mode"`

	// WebhookURL is the public HTTPS URL Telegram posts updates to.
	WebhookURL string `yaml:"webhook_url"`

	// WebhookSecret is echoed by Telegram in each webhook request.
	WebhookSecret string `yaml:"webhook_secret"`

	// ListenAddr is the webhook server address, e.g. ":8443".
	ListenAddr string `yaml:"listen_addr"`

	// RateLimit caps outbound messages per second (default 30).
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// HandleTimeout bounds the work for one update.
	HandleTimeout time.Duration `yaml:"handle_timeout"`

	// TableMode rewrites markdown tables in answers; Telegram shows them as
	// raw pipes. Defaults to bullets.
	TableMode channels.TableMode `yaml:"table_mode"`
}

// Validate applies defaults and checks required fields.
func (c *Config) Validate() error {
	if c.Token == "" {
		return channels.ErrConfig("telegram token is required", nil)
	}
	if c.Mode == "" {
		c.Mode = ModeLongPolling
		if c.WebhookURL != "" {
			c.Mode = ModeWebhook
		}
	}
	switch c.Mode {
	case ModeLongPolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			return channels.ErrConfig("webhook_url is required for webhook mode", nil)
		}
		if _, err := url.ParseRequestURI(c.WebhookURL); err != nil {
			return channels.ErrConfig("invalid webhook_url", err)
		}
		if c.ListenAddr == "" {
			c.ListenAddr = ":8443"
		}
	default:
		return channels.ErrConfig(fmt.Sprintf("unknown mode %q", c.Mode), nil)
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 30
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.HandleTimeout <= 0 {
		c.HandleTimeout = 2 * time.Minute
	}
	switch c.TableMode {
	case "":
		c.TableMode = channels.TableModeBullets
	case channels.TableModeBullets, channels.TableModeOff:
	default:
		return channels.ErrConfig(fmt.Sprintf("unknown table_mode %q", c.TableMode), nil)
	}
	return nil
}

// Options carries the adapter's dependencies.
type Options struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	// Client replaces the real bot, for tests.
	Client BotClient
}

// Adapter receives Telegram updates and replies through the responder.
type Adapter struct {
	config     Config
	client     BotClient
	dispatcher *channels.Dispatcher
	limiter    *rate.Limiter
	logger     *slog.Logger

	// handlers tracks in-flight updates so Run can wait for them. Once
	// stopping is set under mu no new update is admitted.
	mu       sync.Mutex
	stopping bool
	handlers sync.WaitGroup
}

// NewAdapter creates an adapter. Unless opts.Client is set, the bot is
// created here without contacting Telegram; Run verifies the token.
func NewAdapter(cfg Config, responder channels.Responder, opts Options) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if responder == nil {
		return nil, channels.ErrConfig("responder is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		config: cfg,
		dispatcher: &channels.Dispatcher{
			Responder: responder,
			Metrics:   opts.Metrics,
			Tracer:    opts.Tracer,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger.With("channel", "telegram"),
	}

	a.client = opts.Client
	if a.client == nil {
		botOpts := []bot.Option{
			bot.WithDefaultHandler(a.onUpdate),
			bot.WithSkipGetMe(),
		}
		if cfg.WebhookSecret != "" {
			botOpts = append(botOpts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
		}
		b, err := bot.New(cfg.Token, botOpts...)
		if err != nil {
			return nil, channels.ErrConfig("failed to create bot", err)
		}
		a.client = b
	}
	return a, nil
}

// Run receives updates until ctx is done, then waits for in-flight replies.
func (a *Adapter) Run(ctx context.Context) error {
	me, err := a.client.GetMe(ctx)
	if err != nil {
		return channels.ClassifySendError(err).WithContext("op", "getMe")
	}
	a.logger.Info("telegram bot connected", "username", me.Username, "mode", a.config.Mode)

	if a.config.Mode == ModeWebhook {
		err = a.runWebhook(ctx)
	} else {
		err = a.runLongPolling(ctx)
	}

	a.mu.Lock()
	a.stopping = true
	a.mu.Unlock()
	a.logger.Info("telegram receiving stopped, draining replies")
	a.handlers.Wait()
	a.logger.Info("telegram adapter stopped")
	return err
}

// admit registers an update as in flight unless Run is draining.
func (a *Adapter) admit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopping {
		return false
	}
	a.handlers.Add(1)
	return true
}

func (a *Adapter) runLongPolling(ctx context.Context) error {
	// getUpdates fails while a webhook is registered.
	if _, err := a.client.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		a.logger.Warn("failed to delete webhook", "error", err)
	}
	a.client.Start(ctx)
	return nil
}

func (a *Adapter) runWebhook(ctx context.Context) error {
	if _, err := a.client.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:         a.config.WebhookURL,
		SecretToken: a.config.WebhookSecret,
	}); err != nil {
		return channels.ErrConnection("failed to set webhook", err)
	}

	path := "/"
	if u, err := url.Parse(a.config.WebhookURL); err == nil && u.Path != "" {
		path = u.Path
	}
	mux := http.NewServeMux()
	mux.Handle(path, a.client.WebhookHandler())

	srv := &http.Server{
		Addr:              a.config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go a.client.StartWebhook(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("webhook server listening", "addr", a.config.ListenAddr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return channels.ErrConnection("webhook server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return channels.ErrTimeout("webhook server shutdown", err)
	}
	return nil
}

// onUpdate adapts HandleUpdate to bot.HandlerFunc.
func (a *Adapter) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	a.HandleUpdate(ctx, update)
}

// HandleUpdate answers one update. Non-text updates are ignored, as are
// updates arriving after Run has stopped receiving.
//
// The bot cancels ctx when receiving stops; the reply outlives that and is
// bounded by HandleTimeout instead.
func (a *Adapter) HandleUpdate(ctx context.Context, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Text == "" {
		return
	}
	if !a.admit() {
		a.logger.Debug("dropping update received during shutdown", "update_id", update.ID)
		return
	}
	defer a.handlers.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.HandleTimeout)
	defer cancel()

	msg := update.Message
	in := channels.Inbound{
		Channel: sitemodels.ChannelTelegram,
		UserID:  msg.Chat.ID,
		Text:    msg.Text,
	}
	if msg.From != nil {
		in.UserID = msg.From.ID
		in.DisplayName = msg.From.FirstName
	}

	a.logger.Debug("received message", "chat_id", msg.Chat.ID, "user_id", in.UserID)

	if kind, _ := channels.Classify(msg.Text); kind == channels.KindQuestion {
		if _, err := a.client.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: msg.Chat.ID,
			Action: models.ChatActionTyping,
		}); err != nil {
			a.logger.Debug("typing indicator failed", "error", err)
		}
	}

	reply, kind := a.dispatcher.Dispatch(ctx, in)
	if reply == "" {
		return
	}
	reply = channels.FlattenTables(reply, a.config.TableMode)
	if err := a.Send(ctx, msg.Chat.ID, reply); err != nil {
		a.logger.Error("failed to send reply",
			"chat_id", msg.Chat.ID,
			"kind", kind,
			"code", channels.GetErrorCode(err),
			"error", err)
	}
}

// Send delivers text to chatID, split into Telegram-sized messages and paced
// by the outbound rate limit.
func (a *Adapter) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range channels.Split(text, MaxMessageLength) {
		if err := a.limiter.Wait(ctx); err != nil {
			return channels.ErrTimeout("rate limit wait cancelled", err)
		}
		if _, err := a.client.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
		}); err != nil {
			return channels.ClassifySendError(err).WithContext("chat_id", chatID)
		}
	}
	return nil
}
