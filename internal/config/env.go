package config

import (
	"strings"
)

type lookupFunc func(string) (string, bool)

// first returns the value of the first set, non-blank variable.
func first(lookup lookupFunc, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func override(dst *string, lookup lookupFunc, names ...string) {
	if v, ok := first(lookup, names...); ok {
		*dst = v
	}
}

// providerKeyEnv lists the credential variables for each hosted provider.
// The short aliases are kept for existing deployments.
var providerKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GEMINI_API", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

func providerName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini", "google":
		return "gemini"
	case "claude", "anthropic":
		return "anthropic"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config, lookup lookupFunc) {
	override(&cfg.Telegram.Token, lookup, "TELEGRAM_BOT_TOKEN", "MY_BOT_TOKEN")
	override(&cfg.Telegram.WebhookURL, lookup, "TELEGRAM_WEBHOOK_URL")
	override(&cfg.Telegram.WebhookSecret, lookup, "TELEGRAM_WEBHOOK_SECRET")

	override(&cfg.LLM.Provider, lookup, "SITECHAT_LLM_PROVIDER")
	override(&cfg.LLM.Model, lookup, "SITECHAT_LLM_MODEL")
	if names, ok := providerKeyEnv[providerName(cfg.LLM.Provider)]; ok {
		override(&cfg.LLM.APIKey, lookup, names...)
	}

	override(&cfg.Embeddings.Provider, lookup, "SITECHAT_EMBEDDINGS_PROVIDER")
	if names, ok := providerKeyEnv[providerName(cfg.Embeddings.Provider)]; ok && cfg.Embeddings.Provider != "" {
		override(&cfg.Embeddings.APIKey, lookup, names...)
	}

	k := &cfg.Knowledge
	override(&k.Website, lookup, "SITECHAT_WEBSITE_URL", "WEBSITE_URL")
	override(&k.DocumentsDir, lookup, "SITECHAT_DOCUMENTS_DIR", "TRAINING_DATA_DIR")
	override(&k.S3.Bucket, lookup, "AWS_S3_BUCKET")
	override(&k.S3.Prefix, lookup, "AWS_S3_PREFIX")
	override(&k.S3.Region, lookup, "AWS_REGION", "AWS_DEFAULT_REGION")
	override(&k.S3.Endpoint, lookup, "AWS_ENDPOINT_URL_S3")
	override(&k.PDFLicenseKey, lookup, "UNIDOC_LICENSE_API_KEY")

	override(&cfg.Logging.Level, lookup, "SITECHAT_LOG_LEVEL")
	override(&cfg.Tracing.Endpoint, lookup, "OTEL_EXPORTER_OTLP_ENDPOINT")
}
