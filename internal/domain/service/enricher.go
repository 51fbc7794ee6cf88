package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/internal/domain/prompt"
)

type Topic string

const (
	TopicCustomer    Topic = "customer"
	TopicOrders      Topic = "orders"
	TopicNextActions Topic = "next_actions"
)

type EnrichRequest struct {
	Topic      Topic
	CustomerID string
	// Slice selects the orders to fetch for TopicOrders.
	Slice model.Slice
}

// Enrichment is a domain record together with its summary. Exactly one of
// Customer and Orders is set.
type Enrichment struct {
	Customer *model.CustomerSnapshot
	Orders   *model.OrderBatch
	Summary  model.Summary
}

type EnricherConfig struct {
	MaxTokens       int
	MaxSummaryChars int
}

// Enricher fetches a domain record and summarizes it.
type Enricher struct {
	data       outbound.DataSource
	summarizer outbound.Summarizer
	prompts    *prompt.Builder
	cfg        EnricherConfig
	logger     *slog.Logger
}

func NewEnricher(data outbound.DataSource, summarizer outbound.Summarizer, prompts *prompt.Builder, cfg EnricherConfig, logger *slog.Logger) *Enricher {
	return &Enricher{
		data:       data,
		summarizer: summarizer,
		prompts:    prompts,
		cfg:        cfg,
		logger:     logger,
	}
}

// Enrich acquires the record first and only then asks for a summary. Data
// source failures are returned; summarizer failures yield the fallback
// summary.
func (e *Enricher) Enrich(ctx context.Context, req EnrichRequest) (Enrichment, error) {
	var (
		out        Enrichment
		promptText string
		err        error
	)

	switch req.Topic {
	case TopicCustomer, TopicNextActions:
		c, ferr := e.data.CustomerSnapshot(ctx, req.CustomerID)
		if ferr != nil {
			return Enrichment{}, fmt.Errorf("fetching customer %s: %w", req.CustomerID, ferr)
		}
		if verr := c.Validate(); verr != nil {
			return Enrichment{}, fmt.Errorf("customer %s: %w", req.CustomerID, verr)
		}
		out.Customer = &c
		if req.Topic == TopicCustomer {
			promptText, err = e.prompts.Customer(c)
		} else {
			promptText, err = e.prompts.NextActions(c)
		}
	case TopicOrders:
		b, ferr := e.data.Orders(ctx, outbound.OrderQuery{
			CustomerID: req.CustomerID,
			Offset:     req.Slice.Offset,
			Limit:      req.Slice.Limit,
		})
		if ferr != nil {
			return Enrichment{}, fmt.Errorf("fetching orders for %s: %w", req.CustomerID, ferr)
		}
		out.Orders = &b
		promptText, err = e.prompts.Orders(b)
	default:
		return Enrichment{}, fmt.Errorf("unknown enrichment topic %q", req.Topic)
	}

	if err != nil {
		e.logger.Warn("building prompt failed, using fallback summary", "topic", req.Topic, "error", err)
		out.Summary = model.FallbackSummary()
		return out, nil
	}

	out.Summary = e.summarize(ctx, req.Topic, promptText)
	return out, nil
}

func (e *Enricher) summarize(ctx context.Context, topic Topic, promptText string) model.Summary {
	text, err := e.summarizer.Summarize(ctx, outbound.SummaryRequest{
		Prompt:    promptText,
		MaxTokens: e.cfg.MaxTokens,
	})
	if err != nil {
		e.logger.Warn("summarizer failed, using fallback summary", "topic", topic, "error", err)
		return model.FallbackSummary()
	}

	s := model.NewSummary(text, e.cfg.MaxSummaryChars)
	if !s.Valid() {
		e.logger.Warn("summarizer returned empty text, using fallback summary", "topic", topic)
		return model.FallbackSummary()
	}
	return s
}
