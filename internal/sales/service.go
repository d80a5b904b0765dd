// internal/sales/service.go
package sales

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the sales service.
type Service interface {
	// Confirm applies a confirmed payment to the ledger, the catalog and the
	// member's spend in one transaction. A redelivered confirmation returns
	// ErrAlreadyProcessed and changes nothing.
	Confirm(ctx context.Context, c PaymentConfirmation) (*Outcome, error)
	Receipt(ctx context.Context, transactionID string) (*Receipt, error)
	Years(ctx context.Context) ([]int, error)
	YearlyReport(ctx context.Context, year int) (map[string][]MonthlySales, error)
}

// Store is the sales ledger persistence.
type Store interface {
	WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error

	ReceiptLines(ctx context.Context, transactionID string) ([]ReceiptLine, error)
	Years(ctx context.Context) ([]int, error)
	MonthRows(ctx context.Context, year int) ([]MonthRow, error)
}

// TxStore is everything a checkout touches inside its transaction.
type TxStore interface {
	// ClaimPayment records a transaction id as processed. claimed is false
	// when the id was already recorded.
	ClaimPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (claimed bool, err error)
	UnitPrice(ctx context.Context, isbn string) (price decimal.Decimal, ok bool, err error)
	InsertSale(ctx context.Context, rec SaleRecord) error
	// AddSpend credits a member. found is false for an unknown member.
	AddSpend(ctx context.Context, memberID int64, amount decimal.Decimal) (found bool, err error)
	ApplySale(ctx context.Context, isbn string, qty int) error
}
