package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// AccountList is a JSON-encoded list of IMAP accounts in an env var.
type AccountList []models.AccountConfig

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (l *AccountList) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = nil
		return nil
	}
	if err := json.Unmarshal(text, (*[]models.AccountConfig)(l)); err != nil {
		return fmt.Errorf("invalid IMAP_ACCOUNTS JSON: %w", err)
	}
	return nil
}

// Config application configuration
type Config struct {
	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/emailsync.db"`

	// Mail sync
	Accounts          AccountList   `env:"IMAP_ACCOUNTS"` // JSON array
	BacklogWindow     time.Duration `env:"BACKLOG_WINDOW" envDefault:"720h"`
	ReconnectDelay    time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`
	KeepaliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"1m"`
	IMAPDialTimeout   time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// Notification sinks (both optional)
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  int64  `env:"TELEGRAM_CHAT_ID"`

	// Structured generation (optional)
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://openrouter.ai/api/v1/chat/completions"`
	LLMModel   string `env:"LLM_MODEL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// SlackEnabled returns true if the Slack webhook sink is configured
func (c *Config) SlackEnabled() bool {
	return c.SlackWebhookURL != ""
}

// TelegramEnabled returns true if the Telegram sink is configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// LLMEnabled returns true if the structured-generation collaborator is configured
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// ActiveAccounts returns the configured accounts that carry credentials,
// plus the ones skipped for missing credentials.
func (c *Config) ActiveAccounts() (active, skipped []models.AccountConfig) {
	for _, acc := range c.Accounts {
		if acc.HasCredentials() {
			active = append(active, acc)
		} else {
			skipped = append(skipped, acc)
		}
	}
	return active, skipped
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.BacklogWindow <= 0 {
		return nil, fmt.Errorf("BACKLOG_WINDOW must be positive, got %s", cfg.BacklogWindow)
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("RECONNECT_DELAY must be positive, got %s", cfg.ReconnectDelay)
	}

	seen := make(map[string]bool, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		if acc.ID == "" {
			return nil, fmt.Errorf("account %q is missing an id", acc.Email)
		}
		if seen[acc.ID] {
			return nil, fmt.Errorf("duplicate account id %q", acc.ID)
		}
		seen[acc.ID] = true
	}

	return cfg, nil
}
