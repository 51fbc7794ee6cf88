package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// CustomerRepo implements outbound.RecordStore using SQLite.
type CustomerRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewCustomerRepo creates a new CustomerRepo backed by the given store.
func NewCustomerRepo(store *Store) *CustomerRepo {
	return &CustomerRepo{db: store.DB, now: time.Now}
}

// CustomerSnapshot fetches a customer by ID.
func (r *CustomerRepo) CustomerSnapshot(ctx context.Context, customerID string) (model.CustomerSnapshot, error) {
	const q = `SELECT id, orders_placed, lifetime_cents, last_visit, tasks_outstanding
		FROM customers WHERE id = ?`

	var c model.CustomerSnapshot
	var cents int64
	err := r.db.QueryRowContext(ctx, q, customerID).Scan(
		&c.CustomerID, &c.OrdersPlaced, &cents, &c.LastVisit, &c.TasksOutstanding,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CustomerSnapshot{}, fmt.Errorf("customer %s: %w", customerID, outbound.ErrRecordNotFound)
	}
	if err != nil {
		return model.CustomerSnapshot{}, fmt.Errorf("fetching customer: %w", err)
	}
	c.LifetimeAmount = model.Money(cents)
	c.LastVisit = c.LastVisit.UTC()
	return c, nil
}

// Orders returns one slice of the customer's orders, newest first.
func (r *CustomerRepo) Orders(ctx context.Context, q outbound.OrderQuery) (model.OrderBatch, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(o.id) FROM customers c LEFT JOIN orders o ON o.customer_id = c.id
		 WHERE c.id = ? GROUP BY c.id`, q.CustomerID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OrderBatch{}, fmt.Errorf("customer %s: %w", q.CustomerID, outbound.ErrRecordNotFound)
	}
	if err != nil {
		return model.OrderBatch{}, fmt.Errorf("counting orders: %w", err)
	}

	batch := model.OrderBatch{CustomerID: q.CustomerID, Offset: q.Offset, Total: total}
	if q.Limit <= 0 || q.Offset < 0 || q.Offset >= total {
		return batch, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, placed_at, amount_cents, product FROM orders
		 WHERE customer_id = ? ORDER BY placed_at DESC, id ASC LIMIT ? OFFSET ?`,
		q.CustomerID, q.Limit, q.Offset)
	if err != nil {
		return model.OrderBatch{}, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Order
		var cents int64
		if err := rows.Scan(&o.ID, &o.PlacedAt, &cents, &o.Product); err != nil {
			return model.OrderBatch{}, fmt.Errorf("scanning order: %w", err)
		}
		o.Amount = model.Money(cents)
		o.PlacedAt = o.PlacedAt.UTC()
		batch.Orders = append(batch.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return model.OrderBatch{}, fmt.Errorf("iterating orders: %w", err)
	}
	return batch, nil
}

// SaveCustomer inserts or replaces a customer row.
func (r *CustomerRepo) SaveCustomer(ctx context.Context, c model.CustomerSnapshot) error {
	if err := c.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO customers (id, orders_placed, lifetime_cents, last_visit, tasks_outstanding, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			orders_placed = excluded.orders_placed,
			lifetime_cents = excluded.lifetime_cents,
			last_visit = excluded.last_visit,
			tasks_outstanding = excluded.tasks_outstanding,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, q,
		c.CustomerID, c.OrdersPlaced, int64(c.LifetimeAmount), c.LastVisit.UTC(),
		c.TasksOutstanding, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving customer: %w", err)
	}
	return nil
}

// SaveOrders replaces the customer's order history. Orders without an ID
// are assigned one.
func (r *CustomerRepo) SaveOrders(ctx context.Context, customerID string, orders []model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE customer_id = ?`, customerID); err != nil {
		return fmt.Errorf("clearing orders: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders (id, customer_id, placed_at, amount_cents, product) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		id := o.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, customerID, o.PlacedAt.UTC(), int64(o.Amount), o.Product); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
	}
	return tx.Commit()
}

// Ping verifies the database is reachable.
func (r *CustomerRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
