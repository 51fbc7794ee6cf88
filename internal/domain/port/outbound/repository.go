package outbound

import (
	"context"
	"errors"

	"github.com/jonny/insight-bot/internal/domain/model"
)

var ErrRecordNotFound = errors.New("record not found")

type OrderQuery struct {
	CustomerID string
	Offset     int
	Limit      int
}

// DataSource produces domain records on demand.
type DataSource interface {
	CustomerSnapshot(ctx context.Context, customerID string) (model.CustomerSnapshot, error)
	// Orders returns the slice of the customer's history, newest first. The
	// batch Total is the size of the whole history.
	Orders(ctx context.Context, q OrderQuery) (model.OrderBatch, error)
}

// RecordStore is a DataSource that can also persist records.
type RecordStore interface {
	DataSource
	SaveCustomer(ctx context.Context, c model.CustomerSnapshot) error
	SaveOrders(ctx context.Context, customerID string, orders []model.Order) error
	Ping(ctx context.Context) error
}
