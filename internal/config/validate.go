package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 1 and 65535")
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "server.rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}

	if cfg.Slack.Enabled {
		switch cfg.Slack.Mode {
		case "socket":
			if cfg.Slack.AppToken == "" {
				errs = append(errs, "slack.appToken is required in socket mode")
			}
		case "http":
			if cfg.Slack.SigningSecret == "" {
				errs = append(errs, "slack.signingSecret is required in http mode")
			}
			if cfg.Slack.AckTimeout <= 0 {
				errs = append(errs, "slack.ackTimeout must be positive in http mode")
			}
		default:
			errs = append(errs, fmt.Sprintf("slack.mode must be socket or http (got %q)", cfg.Slack.Mode))
		}
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
	}

	ic := cfg.Interaction
	if ic.RenderDelay < 0 {
		errs = append(errs, "interaction.renderDelay must not be negative")
	}
	if ic.HandlerTimeout <= 0 {
		errs = append(errs, "interaction.handlerTimeout must be positive")
	}
	if ic.DrainTimeout <= 0 {
		errs = append(errs, "interaction.drainTimeout must be positive")
	}
	if ic.FirstPageSize <= 0 || ic.NextPageSize <= 0 {
		errs = append(errs, "interaction.firstPageSize and interaction.nextPageSize must be positive")
	}

	sc := cfg.Summarizer
	switch sc.Provider {
	case "ollama":
		if sc.Ollama.BaseURL == "" {
			errs = append(errs, "summarizer.ollama.baseURL is required when provider is ollama")
		}
	case "gemini":
		if sc.Gemini.APIKey == "" {
			errs = append(errs, "summarizer.gemini.apiKey is required when provider is gemini")
		}
	default:
		errs = append(errs, fmt.Sprintf("summarizer.provider must be one of: ollama, gemini (got %q)", sc.Provider))
	}
	if sc.MaxTokens <= 0 {
		errs = append(errs, "summarizer.maxTokens must be positive")
	}
	if sc.MaxSummaryChars < 0 {
		errs = append(errs, "summarizer.maxSummaryChars must not be negative")
	}

	ds := cfg.DataSource
	switch ds.Driver {
	case "random":
	case "sqlite":
		if ds.SQLite.Path == "" {
			errs = append(errs, "dataSource.sqlite.path is required when driver is sqlite")
		}
	case "postgres":
		if ds.Postgres.DSN == "" {
			errs = append(errs, "dataSource.postgres.dsn is required when driver is postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("dataSource.driver must be random, sqlite or postgres (got %q)", ds.Driver))
	}
	if ds.Random.HistorySize <= 0 {
		errs = append(errs, "dataSource.random.historySize must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
