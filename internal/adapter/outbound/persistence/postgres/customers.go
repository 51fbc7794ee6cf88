package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// Customers implements outbound.RecordStore on PostgreSQL.
type Customers struct {
	db *DB
}

func NewCustomers(db *DB) *Customers {
	return &Customers{db: db}
}

func (c *Customers) CustomerSnapshot(ctx context.Context, customerID string) (model.CustomerSnapshot, error) {
	var s model.CustomerSnapshot
	var cents int64
	err := c.db.Pool.QueryRow(ctx,
		`SELECT id, orders_placed, lifetime_cents, last_visit, tasks_outstanding
		 FROM customers WHERE id = $1`, customerID,
	).Scan(&s.CustomerID, &s.OrdersPlaced, &cents, &s.LastVisit, &s.TasksOutstanding)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CustomerSnapshot{}, fmt.Errorf("customer %s: %w", customerID, outbound.ErrRecordNotFound)
	}
	if err != nil {
		return model.CustomerSnapshot{}, fmt.Errorf("scan customer: %w", err)
	}
	s.LifetimeAmount = model.Money(cents)
	s.LastVisit = s.LastVisit.UTC()
	return s, nil
}

func (c *Customers) Orders(ctx context.Context, q outbound.OrderQuery) (model.OrderBatch, error) {
	var total int64
	err := c.db.Pool.QueryRow(ctx,
		`SELECT COUNT(o.id)::bigint FROM customers c
		 LEFT JOIN orders o ON o.customer_id = c.id
		 WHERE c.id = $1 GROUP BY c.id`, q.CustomerID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.OrderBatch{}, fmt.Errorf("customer %s: %w", q.CustomerID, outbound.ErrRecordNotFound)
	}
	if err != nil {
		return model.OrderBatch{}, fmt.Errorf("count orders: %w", err)
	}

	batch := model.OrderBatch{CustomerID: q.CustomerID, Offset: q.Offset, Total: int(total)}
	if q.Limit <= 0 || q.Offset < 0 || q.Offset >= batch.Total {
		return batch, nil
	}

	rows, err := c.db.Pool.Query(ctx,
		`SELECT id, placed_at, amount_cents, product FROM orders
		 WHERE customer_id = $1 ORDER BY placed_at DESC, id ASC LIMIT $2 OFFSET $3`,
		q.CustomerID, q.Limit, q.Offset)
	if err != nil {
		return model.OrderBatch{}, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Order
		var cents int64
		if err := rows.Scan(&o.ID, &o.PlacedAt, &cents, &o.Product); err != nil {
			return model.OrderBatch{}, fmt.Errorf("scan order: %w", err)
		}
		o.Amount = model.Money(cents)
		o.PlacedAt = o.PlacedAt.UTC()
		batch.Orders = append(batch.Orders, o)
	}
	return batch, rows.Err()
}

func (c *Customers) SaveCustomer(ctx context.Context, s model.CustomerSnapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := c.db.Pool.Exec(ctx,
		`INSERT INTO customers (id, orders_placed, lifetime_cents, last_visit, tasks_outstanding, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			orders_placed = EXCLUDED.orders_placed,
			lifetime_cents = EXCLUDED.lifetime_cents,
			last_visit = EXCLUDED.last_visit,
			tasks_outstanding = EXCLUDED.tasks_outstanding,
			updated_at = EXCLUDED.updated_at`,
		s.CustomerID, s.OrdersPlaced, int64(s.LifetimeAmount), s.LastVisit.UTC(), s.TasksOutstanding, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// SaveOrders replaces the customer's order history in one transaction.
func (c *Customers) SaveOrders(ctx context.Context, customerID string, orders []model.Order) error {
	return pgx.BeginFunc(ctx, c.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE customer_id = $1`, customerID); err != nil {
			return fmt.Errorf("clear orders: %w", err)
		}
		if len(orders) == 0 {
			return nil
		}

		b := &pgx.Batch{}
		for _, o := range orders {
			id := o.ID
			if id == "" {
				id = uuid.NewString()
			}
			b.Queue(`INSERT INTO orders (id, customer_id, placed_at, amount_cents, product)
				VALUES ($1, $2, $3, $4, $5)`, id, customerID, o.PlacedAt.UTC(), int64(o.Amount), o.Product)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
		return nil
	})
}

func (c *Customers) Ping(ctx context.Context) error {
	return c.db.Ready(ctx)
}
