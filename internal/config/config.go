package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string

	// LLM backend (OpenAI-compatible chat completions).
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Assistant identity used to namespace preferences and training data.
	AssistantID   string
	AssistantName string
	AssistantFull string

	// FeedbackEnabled gates training-example recording and redraft dispatch.
	FeedbackEnabled bool

	// Microsoft Graph mail source.
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	MailboxAddress    string
	MailFolder        string
	MailPageSize      int

	// Optional reviewer notification webhook.
	NotifyWebhookURL string
	ReviewBaseURL    string
}

func Load() Config {
	return Config{
		Port:        envInt("EMAS_PORT", 8810),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("EMAS_API_TOKEN", ""),

		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   envStr("OPENAI_MODEL", "gpt-4o"),

		AssistantID:   envStr("EMAS_ASSISTANT_ID", "default"),
		AssistantName: envStr("EMAS_ASSISTANT_NAME", "Andreas"),
		AssistantFull: envStr("EMAS_ASSISTANT_FULL_NAME", "Andreas Wittus"),

		FeedbackEnabled: envBool("EMAS_FEEDBACK_ENABLED", true),

		GraphTenantID:     envStr("TENANT_ID", ""),
		GraphClientID:     envStr("CLIENT_ID", ""),
		GraphClientSecret: envStr("CLIENT_SECRET", ""),
		MailboxAddress:    envStr("EMAS_MAILBOX", ""),
		MailFolder:        envStr("EMAS_MAIL_FOLDER", ""),
		MailPageSize:      envInt("EMAS_MAIL_PAGE_SIZE", 25),

		NotifyWebhookURL: envStr("EMAS_NOTIFY_WEBHOOK_URL", ""),
		ReviewBaseURL:    envStr("EMAS_REVIEW_BASE_URL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
