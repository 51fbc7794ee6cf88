package outbound

import "context"

type SummaryRequest struct {
	Prompt    string
	MaxTokens int
}

type ModelInfo struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Summarizer abstracts a text-completion service.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	HealthCheck(ctx context.Context) error
	ModelInfo() ModelInfo
}
