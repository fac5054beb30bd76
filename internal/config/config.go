package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Env                string
	DatabaseURL        string
	RocketChatURL      string
	RocketChatUser     string
	RocketChatPassword string
	JiraURL            string
	JiraToken          string
	JiraIssueType      string
	PollInterval       time.Duration
	PollBackoff        time.Duration
	RequestTimeout     time.Duration
	HTTPAddr           string
	LogViewURL         string
	LogViewUser        string
	LogViewPassword    string
	LogTimezone        string
	ActivityWebhookURL string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	for _, u := range c.urlFieldChecks() {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", u.name, u.value)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.PollBackoff < c.PollInterval {
		return fmt.Errorf("POLL_BACKOFF must not be shorter than POLL_INTERVAL, got %s < %s", c.PollBackoff, c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if (c.LogViewUser == "") != (c.LogViewPassword == "") {
		return fmt.Errorf("LOG_VIEW_USER and LOG_VIEW_PASSWORD must be set together")
	}
	if c.LogTimezone == "" {
		return fmt.Errorf("LOG_TIMEZONE is required")
	}
	if _, err := time.LoadLocation(c.LogTimezone); err != nil {
		return fmt.Errorf("LOG_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "ROCKETCHAT_URL", value: c.RocketChatURL},
		{name: "ROCKETCHAT_USER", value: c.RocketChatUser},
		{name: "ROCKETCHAT_PASSWORD", value: c.RocketChatPassword},
		{name: "JIRA_URL", value: c.JiraURL},
		{name: "JIRA_TOKEN", value: c.JiraToken},
		{name: "JIRA_ISSUE_TYPE", value: c.JiraIssueType},
		{name: "HTTP_ADDR", value: c.HTTPAddr},
	}
}

func (c *Config) urlFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "ROCKETCHAT_URL", value: c.RocketChatURL},
		{name: "JIRA_URL", value: c.JiraURL},
		{name: "LOG_VIEW_URL", value: c.LogViewURL},
		{name: "ACTIVITY_WEBHOOK_URL", value: c.ActivityWebhookURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location returns the zone calendar dates of the log view are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LogTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
