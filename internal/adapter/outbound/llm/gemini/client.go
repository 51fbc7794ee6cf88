package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	SystemPrompt string
	Temperature  float64
}

// Client implements outbound.Summarizer using the Gemini API.
type Client struct {
	config Config
	client *genai.Client
}

// NewClient creates a new Gemini Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	httpOpts := genai.HTTPOptions{BaseURL: cfg.BaseURL}
	if cfg.Timeout > 0 {
		httpOpts.Timeout = &cfg.Timeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{config: cfg, client: client}, nil
}

func (c *Client) Summarize(ctx context.Context, req outbound.SummaryRequest) (string, error) {
	temp := float32(c.config.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if c.config.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(c.config.SystemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// HealthCheck fetches the configured model's metadata.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.config.Model, nil); err != nil {
		return fmt.Errorf("gemini health check: %w", err)
	}
	return nil
}

func (c *Client) ModelInfo() outbound.ModelInfo {
	return outbound.ModelInfo{Provider: "gemini", Model: c.config.Model}
}
