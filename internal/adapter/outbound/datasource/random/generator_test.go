package random

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }

func newGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	g, err := New(Config{HistorySize: 5, Seed: seed, Now: fixedNow})
	require.NoError(t, err)
	return g
}

func TestCustomerSnapshot_Ranges(t *testing.T) {
	g := newGenerator(t, 42)
	ctx := context.Background()

	for _, id := range []string{"C1", "C2", "C3", "ACME-001", "x"} {
		c, err := g.CustomerSnapshot(ctx, id)
		require.NoError(t, err)
		require.NoError(t, c.Validate())

		assert.Equal(t, id, c.CustomerID)
		assert.GreaterOrEqual(t, c.OrdersPlaced, 1)
		assert.LessOrEqual(t, c.OrdersPlaced, 50)
		assert.GreaterOrEqual(t, int64(c.LifetimeAmount), int64(0))
		assert.Less(t, int64(c.LifetimeAmount), int64(500001))
		assert.Less(t, c.TasksOutstanding, 10)
		assert.False(t, c.LastVisit.After(fixedNow()))
		assert.True(t, c.LastVisit.After(fixedNow().AddDate(0, 0, -31)))
	}
}

func TestCustomerSnapshot_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, _ := newGenerator(t, 7).CustomerSnapshot(ctx, "C1")
	b, _ := newGenerator(t, 7).CustomerSnapshot(ctx, "C1")
	assert.Equal(t, a, b)
}

func TestCustomerSnapshot_EmptyID(t *testing.T) {
	_, err := newGenerator(t, 1).CustomerSnapshot(context.Background(), "")
	assert.True(t, errors.Is(err, outbound.ErrRecordNotFound))
}

func TestHistory_NewestFirstAndLabelled(t *testing.T) {
	history, err := newGenerator(t, 3).History(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, history, 5)

	seen := map[string]bool{}
	for i, o := range history {
		if i > 0 {
			assert.False(t, o.PlacedAt.After(history[i-1].PlacedAt), "order %d newer than order %d", i, i-1)
		}
		assert.NotEmpty(t, o.ID)
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
		assert.Less(t, int64(o.Amount), int64(50001))
	}
	assert.Equal(t, "Product 1", history[0].Product)
	assert.Equal(t, "Product 5", history[4].Product)
}

func TestOrders_PagesAgreeWithHistory(t *testing.T) {
	g := newGenerator(t, 11)
	ctx := context.Background()
	history, err := g.History(ctx, "C1")
	require.NoError(t, err)

	first, err := g.Orders(ctx, outbound.OrderQuery{CustomerID: "C1", Offset: 0, Limit: 3})
	require.NoError(t, err)
	second, err := g.Orders(ctx, outbound.OrderQuery{CustomerID: "C1", Offset: 3, Limit: 2})
	require.NoError(t, err)
	past, err := g.Orders(ctx, outbound.OrderQuery{CustomerID: "C1", Offset: 5, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, first.Total)
	assert.Equal(t, history[:3], first.Orders)
	assert.Equal(t, history[3:], second.Orders)
	assert.Equal(t, 3, second.Offset)
	assert.Empty(t, past.Orders)
	assert.Equal(t, 5, past.Total)
}

func TestNew_RejectsEmptyHistory(t *testing.T) {
	_, err := New(Config{HistorySize: 0})
	assert.Error(t, err)
}
