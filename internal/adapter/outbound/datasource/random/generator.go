// Package random fabricates plausible customer records. Output is a pure
// function of the seed, the customer ID and the generator's anchor time, so
// every page of a customer's history agrees with every other page.
package random

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

const (
	maxOrdersPlaced    = 50
	maxLifetimeDollars = 5000
	maxOrderDollars    = 500
	maxTasks           = 10
	lookbackDays       = 30
)

// orderNamespace scopes the deterministic order IDs.
var orderNamespace = uuid.MustParse("6f1c1b9e-0c39-4c51-9a37-2f0d3c3f5a10")

type Config struct {
	HistorySize int
	// Seed fixes the output. Zero picks a seed from the clock.
	Seed uint64
	// Now anchors generated dates. Defaults to time.Now.
	Now func() time.Time
}

// Generator implements outbound.DataSource with fabricated data.
type Generator struct {
	historySize int
	seed        uint64
	anchor      time.Time
}

func New(cfg Config) (*Generator, error) {
	if cfg.HistorySize <= 0 {
		return nil, errors.New("history size must be positive")
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	return &Generator{
		historySize: cfg.HistorySize,
		seed:        cfg.Seed,
		anchor:      now().UTC().Truncate(time.Minute),
	}, nil
}

// rng returns a source dedicated to one customer and record kind.
func (g *Generator) rng(customerID string, kind model.RecordKind) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(customerID))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	return rand.New(rand.NewPCG(g.seed, h.Sum64()))
}

func (g *Generator) daysAgo(r *rand.Rand) time.Time {
	return g.anchor.AddDate(0, 0, -r.IntN(lookbackDays))
}

func (g *Generator) CustomerSnapshot(_ context.Context, customerID string) (model.CustomerSnapshot, error) {
	if customerID == "" {
		return model.CustomerSnapshot{}, fmt.Errorf("%w: empty customer id", outbound.ErrRecordNotFound)
	}
	r := g.rng(customerID, model.RecordKindCustomer)
	return model.CustomerSnapshot{
		CustomerID:       customerID,
		OrdersPlaced:     r.IntN(maxOrdersPlaced) + 1,
		LifetimeAmount:   model.MoneyFromFloat(r.Float64() * maxLifetimeDollars),
		LastVisit:        g.daysAgo(r),
		TasksOutstanding: r.IntN(maxTasks),
	}, nil
}

// History returns the customer's full order history, newest first.
func (g *Generator) History(_ context.Context, customerID string) ([]model.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", outbound.ErrRecordNotFound)
	}
	r := g.rng(customerID, model.RecordKindOrders)

	orders := make([]model.Order, g.historySize)
	for i := range orders {
		placed := g.daysAgo(r).Add(-time.Duration(r.IntN(24*60)) * time.Minute)
		orders[i] = model.Order{
			PlacedAt: placed,
			Amount:   model.MoneyFromFloat(r.Float64() * maxOrderDollars),
		}
	}
	slices.SortStableFunc(orders, func(a, b model.Order) int {
		return b.PlacedAt.Compare(a.PlacedAt)
	})
	for i := range orders {
		orders[i].ID = uuid.NewSHA1(orderNamespace, []byte(customerID+"/"+strconv.Itoa(i))).String()
		orders[i].Product = "Product " + strconv.Itoa(i+1)
	}
	return orders, nil
}

func (g *Generator) Orders(ctx context.Context, q outbound.OrderQuery) (model.OrderBatch, error) {
	history, err := g.History(ctx, q.CustomerID)
	if err != nil {
		return model.OrderBatch{}, err
	}
	return model.OrderBatch{
		CustomerID: q.CustomerID,
		Offset:     q.Offset,
		Total:      len(history),
		Orders:     model.PageOf(history, model.Slice{Offset: q.Offset, Limit: q.Limit}),
	}, nil
}
