// Package datasource composes data sources: a persistent store that fills
// itself from a generator on first access.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// Generator produces records for customers the store has never seen.
type Generator interface {
	outbound.DataSource
	History(ctx context.Context, customerID string) ([]model.Order, error)
}

// Seeding reads through to a store and seeds unknown customers from a
// generator. Concurrent misses for the same customer are coalesced.
type Seeding struct {
	store  outbound.RecordStore
	gen    Generator
	logger *slog.Logger
	group  singleflight.Group
}

func NewSeeding(store outbound.RecordStore, gen Generator, logger *slog.Logger) *Seeding {
	return &Seeding{store: store, gen: gen, logger: logger}
}

func (s *Seeding) CustomerSnapshot(ctx context.Context, customerID string) (model.CustomerSnapshot, error) {
	c, err := s.store.CustomerSnapshot(ctx, customerID)
	if !errors.Is(err, outbound.ErrRecordNotFound) {
		return c, err
	}
	if err := s.seed(ctx, customerID); err != nil {
		return model.CustomerSnapshot{}, err
	}
	return s.store.CustomerSnapshot(ctx, customerID)
}

func (s *Seeding) Orders(ctx context.Context, q outbound.OrderQuery) (model.OrderBatch, error) {
	b, err := s.store.Orders(ctx, q)
	if !errors.Is(err, outbound.ErrRecordNotFound) {
		return b, err
	}
	if err := s.seed(ctx, q.CustomerID); err != nil {
		return model.OrderBatch{}, err
	}
	return s.store.Orders(ctx, q)
}

func (s *Seeding) seed(ctx context.Context, customerID string) error {
	_, err, _ := s.group.Do(customerID, func() (any, error) {
		c, err := s.gen.CustomerSnapshot(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("generating customer %s: %w", customerID, err)
		}
		orders, err := s.gen.History(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("generating orders for %s: %w", customerID, err)
		}
		if err := s.store.SaveCustomer(ctx, c); err != nil {
			return nil, fmt.Errorf("seeding customer %s: %w", customerID, err)
		}
		if err := s.store.SaveOrders(ctx, customerID, orders); err != nil {
			return nil, fmt.Errorf("seeding orders for %s: %w", customerID, err)
		}
		s.logger.Info("seeded customer", "customer_id", customerID, "orders", len(orders))
		return nil, nil
	})
	return err
}

// Ping checks the underlying store.
func (s *Seeding) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
