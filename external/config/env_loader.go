package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/taskbot/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                string        `env:"ENV" envDefault:"production"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	RocketChatURL      string        `env:"ROCKETCHAT_URL,required"`
	RocketChatUser     string        `env:"ROCKETCHAT_USER,required"`
	RocketChatPassword string        `env:"ROCKETCHAT_PASSWORD,required"`
	JiraURL            string        `env:"JIRA_URL,required"`
	JiraToken          string        `env:"JIRA_TOKEN,required"`
	JiraIssueType      string        `env:"JIRA_ISSUE_TYPE" envDefault:"Task"`
	PollInterval       time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`
	PollBackoff        time.Duration `env:"POLL_BACKOFF" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8000"`
	LogViewURL         string        `env:"LOG_VIEW_URL"`
	LogViewUser        string        `env:"LOG_VIEW_USER"`
	LogViewPassword    string        `env:"LOG_VIEW_PASSWORD"`
	LogTimezone        string        `env:"LOG_TIMEZONE" envDefault:"UTC"`
	ActivityWebhookURL string        `env:"ACTIVITY_WEBHOOK_URL"`
}

// Load reads an optional dotenv file and then the process environment.
// An explicitly named file must exist; the implicit ".env" may be absent.
func Load(envFile string) (*internalconfig.Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return nil, err
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                raw.Env,
		DatabaseURL:        raw.DatabaseURL,
		RocketChatURL:      raw.RocketChatURL,
		RocketChatUser:     raw.RocketChatUser,
		RocketChatPassword: raw.RocketChatPassword,
		JiraURL:            raw.JiraURL,
		JiraToken:          raw.JiraToken,
		JiraIssueType:      raw.JiraIssueType,
		PollInterval:       raw.PollInterval,
		PollBackoff:        raw.PollBackoff,
		RequestTimeout:     raw.RequestTimeout,
		HTTPAddr:           raw.HTTPAddr,
		LogViewURL:         raw.LogViewURL,
		LogViewUser:        raw.LogViewUser,
		LogViewPassword:    raw.LogViewPassword,
		LogTimezone:        raw.LogTimezone,
		ActivityWebhookURL: raw.ActivityWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}
