// internal/purchasing/service.go
package purchasing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the purchasing service.
type Service interface {
	// Record stores a purchase and adds its quantities to stock, all or
	// nothing.
	Record(ctx context.Context, p NewPurchase) (*Created, error)
	List(ctx context.Context) ([]Record, error)
}

// Store is the purchase record persistence.
type Store interface {
	WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error
	// Headers returns purchase headers newest first.
	Headers(ctx context.Context) ([]RecordRow, error)
	Items(ctx context.Context, purchaseIDs []int64) ([]ItemRow, error)
}

// TxStore is everything a restock touches inside its transaction.
type TxStore interface {
	PublisherName(ctx context.Context, id int64) (string, bool, error)
	AdminName(ctx context.Context, id int64) (string, bool, error)
	BookExists(ctx context.Context, isbn string) (bool, error)
	InsertRecord(ctx context.Context, date string, publisherID, adminID int64) (int64, error)
	InsertItem(ctx context.Context, purchaseID int64, line StockLine, totalCost decimal.Decimal) error
	Restock(ctx context.Context, isbn string, qty int) error
}
