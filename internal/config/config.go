package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Slack       SlackConfig       `yaml:"slack"`
	Interaction InteractionConfig `yaml:"interaction"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	DataSource  DataSourceConfig  `yaml:"dataSource"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	MetricsPort     int             `yaml:"metricsPort"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

type SlackConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Mode          string `yaml:"mode"`
	BotToken      string `yaml:"botToken"`
	AppToken      string `yaml:"appToken"`
	SigningSecret string `yaml:"signingSecret"`
	// AckTimeout bounds how long an HTTP-mode request waits for the handler's ack.
	AckTimeout time.Duration `yaml:"ackTimeout"`
	Debug      bool          `yaml:"debug"`
}

type InteractionConfig struct {
	RenderDelay    time.Duration `yaml:"renderDelay"`
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
	DrainTimeout   time.Duration `yaml:"drainTimeout"`
	FirstPageSize  int           `yaml:"firstPageSize"`
	NextPageSize   int           `yaml:"nextPageSize"`
	LoadingText    string        `yaml:"loadingText"`
}

type SummarizerConfig struct {
	Provider          string       `yaml:"provider"`
	MaxTokens         int          `yaml:"maxTokens"`
	MaxWords          int          `yaml:"maxWords"`
	MaxSummaryChars   int          `yaml:"maxSummaryChars"`
	RequestsPerSecond float64      `yaml:"requestsPerSecond"`
	Burst             int          `yaml:"burst"`
	Ollama            OllamaConfig `yaml:"ollama"`
	Gemini            GeminiConfig `yaml:"gemini"`
}

type OllamaConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
}

type GeminiConfig struct {
	APIKey       string        `yaml:"apiKey"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"baseURL"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
}

type DataSourceConfig struct {
	Driver      string         `yaml:"driver"`
	SeedMissing bool           `yaml:"seedMissing"`
	Random      RandomConfig   `yaml:"random"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
	Postgres    PostgresConfig `yaml:"postgres"`
}

type RandomConfig struct {
	HistorySize int    `yaml:"historySize"`
	Seed        uint64 `yaml:"seed"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			RateLimit:       RateLimitConfig{Enabled: true, RequestsPerMinute: 120, Burst: 20},
		},
		Slack: SlackConfig{
			Enabled:    true,
			Mode:       "socket",
			AckTimeout: 2500 * time.Millisecond,
		},
		Interaction: InteractionConfig{
			RenderDelay:    3 * time.Second,
			HandlerTimeout: 30 * time.Second,
			DrainTimeout:   10 * time.Second,
			FirstPageSize:  3,
			NextPageSize:   2,
			LoadingText:    "Getting and summarizing information... :hourglass_flowing_sand:",
		},
		Summarizer: SummarizerConfig{
			Provider:          "ollama",
			MaxTokens:         50,
			MaxWords:          50,
			MaxSummaryChars:   500,
			RequestsPerSecond: 2,
			Burst:             4,
			Ollama: OllamaConfig{
				BaseURL:     "http://localhost:11434",
				Model:       "llama3:8b",
				Timeout:     20 * time.Second,
				MaxRetries:  2,
				Temperature: 0.2,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.0-flash",
				Timeout:     20 * time.Second,
				Temperature: 0.2,
			},
		},
		DataSource: DataSourceConfig{
			Driver:      "random",
			SeedMissing: true,
			Random:      RandomConfig{HistorySize: 5},
			SQLite: SQLiteConfig{
				Path:              "/data/insight-bot.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
			Postgres: PostgresConfig{
				MaxConns:        10,
				MinConns:        1,
				ConnMaxLifetime: time.Hour,
				ConnectTimeout:  5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
