package model

import (
	"errors"
	"fmt"
	"time"
)

type RecordKind string

const (
	RecordKindCustomer RecordKind = "customer"
	RecordKindOrders   RecordKind = "orders"
)

// Money is an amount in cents.
type Money int64

// MoneyFromFloat converts a dollar amount to cents, rounding to the nearest cent.
func MoneyFromFloat(dollars float64) Money {
	if dollars < 0 {
		return Money(dollars*100 - 0.5)
	}
	return Money(dollars*100 + 0.5)
}

func (m Money) String() string {
	sign := ""
	c := int64(m)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}

type CustomerSnapshot struct {
	CustomerID       string    `json:"customer_id"`
	OrdersPlaced     int       `json:"orders_placed"`
	LifetimeAmount   Money     `json:"lifetime_amount"`
	LastVisit        time.Time `json:"last_visit"`
	TasksOutstanding int       `json:"tasks_outstanding"`
}

var errInvalidRecord = errors.New("invalid record")

// Validate reports whether the snapshot respects its value ranges.
func (c CustomerSnapshot) Validate() error {
	switch {
	case c.CustomerID == "":
		return fmt.Errorf("%w: empty customer id", errInvalidRecord)
	case c.OrdersPlaced < 0:
		return fmt.Errorf("%w: negative orders placed", errInvalidRecord)
	case c.TasksOutstanding < 0:
		return fmt.Errorf("%w: negative tasks outstanding", errInvalidRecord)
	case c.LifetimeAmount < 0:
		return fmt.Errorf("%w: negative lifetime amount", errInvalidRecord)
	}
	return nil
}

type Order struct {
	ID       string    `json:"id"`
	PlacedAt time.Time `json:"placed_at"`
	Amount   Money     `json:"amount"`
	Product  string    `json:"product"`
}

// OrderBatch is one slice of a customer's order history. Offset is the position
// of Orders[0] within the full history and Total the size of that history.
type OrderBatch struct {
	CustomerID string  `json:"customer_id"`
	Offset     int     `json:"offset"`
	Total      int     `json:"total"`
	Orders     []Order `json:"orders"`
}

func (b OrderBatch) Len() int { return len(b.Orders) }

// Slice is a half-open window [Offset, Offset+Limit) over an ordered result set.
type Slice struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (s Slice) End() int { return s.Offset + s.Limit }

// PageOf returns the items of s that fall inside items, clamped to its bounds.
func PageOf[T any](items []T, s Slice) []T {
	if s.Offset >= len(items) || s.Limit <= 0 || s.Offset < 0 {
		return nil
	}
	end := min(s.End(), len(items))
	out := make([]T, end-s.Offset)
	copy(out, items[s.Offset:end])
	return out
}
