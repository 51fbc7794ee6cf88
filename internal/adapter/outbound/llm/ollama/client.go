package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/pkg/version"
)

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	SystemPrompt string
	Temperature  float64
	// RetryBackoff is the pause before the second attempt; it doubles on each
	// further attempt.
	RetryBackoff time.Duration
}

// Client implements outbound.Summarizer using the Ollama chat API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Ollama Client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ollama base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama model is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// --- Ollama API types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	TotalDuration   int64       `json:"total_duration"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// statusError is a non-200 reply from Ollama.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama status %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// --- Summarizer implementation ---

// Summarize sends the prompt as a single user turn and returns the reply.
func (c *Client) Summarize(ctx context.Context, req outbound.SummaryRequest) (string, error) {
	messages := []chatMessage{}
	if c.config.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.config.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	text, err := c.doChat(ctx, messages, req.MaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// HealthCheck performs GET /api/tags to verify Ollama is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.config.BaseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating health check request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ModelInfo returns metadata about the configured model.
func (c *Client) ModelInfo() outbound.ModelInfo {
	return outbound.ModelInfo{Provider: "ollama", Model: c.config.Model}
}

// --- Internal helpers ---

// doChat sends a chat request to Ollama, retrying transport failures and
// server errors with exponential backoff.
func (c *Client) doChat(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	body := chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
		Options:  chatOptions{Temperature: c.config.Temperature, NumPredict: maxTokens},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	attempts := c.config.MaxRetries + 1
	backoff := c.config.RetryBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		raw, err := c.postChat(ctx, encoded)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) postChat(ctx context.Context, body []byte) (string, error) {
	url := c.config.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}

	return chatResp.Message.Content, nil
}
