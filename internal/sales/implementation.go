// internal/sales/implementation.go
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// service implements the Service interface.
type service struct {
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	checkouts metric.Int64Counter
	units     metric.Int64Counter
}

// NewService creates a new sales service instance.
func NewService(store Store, logger *slog.Logger) Service {
	meter := otel.Meter("bookstore/sales")
	checkouts, _ := meter.Int64Counter("sales.checkouts",
		metric.WithDescription("Payment confirmations by outcome"))
	units, _ := meter.Int64Counter("sales.units_sold",
		metric.WithDescription("Book units sold"))

	return &service{
		store:     store,
		logger:    logger.With("component", "sales"),
		now:       time.Now,
		checkouts: checkouts,
		units:     units,
	}
}

// Confirm runs the checkout: claim the transaction id, then for every item
// append a sales record, credit the member and move stock to sales. Any
// failure rolls the whole checkout back.
func (s *service) Confirm(ctx context.Context, c PaymentConfirmation) (*Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	date := s.now().Format(dateLayout)
	out := &Outcome{TransactionID: c.TransactionID, Total: decimal.Zero}
	var units int64

	err := s.store.WithinTx(ctx, "sales.checkout", func(tx TxStore) error {
		claimed, err := tx.ClaimPayment(ctx, c.TransactionID, c.Amount)
		if err != nil {
			return fmt.Errorf("claim payment: %w", err)
		}
		if !claimed {
			return ErrAlreadyProcessed
		}

		for _, item := range c.Items {
			isbn := strings.TrimSpace(item.ISBN)
			price, err := s.linePrice(ctx, tx, isbn, item.Price)
			if err != nil {
				return err
			}
			lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))

			if err := tx.InsertSale(ctx, SaleRecord{
				TransactionID: c.TransactionID,
				ISBN:          isbn,
				Quantity:      item.Quantity,
				TotalPrice:    lineTotal,
				Date:          date,
				MemberID:      c.MemberID,
			}); err != nil {
				return fmt.Errorf("record sale of %s: %w", isbn, err)
			}

			if c.MemberID != nil {
				found, err := tx.AddSpend(ctx, *c.MemberID, lineTotal)
				if err != nil {
					return err
				}
				if found {
					out.MemberCredited = true
				} else {
					s.logger.Warn("no member found to credit", "member_id", *c.MemberID, "transaction_id", c.TransactionID)
				}
			}

			if err := tx.ApplySale(ctx, isbn, item.Quantity); err != nil {
				return err
			}

			out.Lines++
			out.Total = out.Total.Add(lineTotal)
			units += int64(item.Quantity)
		}
		return nil
	})

	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "duplicate")))
		s.logger.Info("duplicate payment confirmation ignored", "transaction_id", c.TransactionID)
		return nil, err
	case err != nil:
		s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		return nil, fmt.Errorf("checkout %s: %w", c.TransactionID, err)
	}

	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "applied")))
	s.units.Add(ctx, units)
	s.logger.Info("checkout applied",
		"transaction_id", c.TransactionID,
		"lines", out.Lines,
		"total", out.Total.StringFixed(2),
		"charged", c.Amount.StringFixed(2),
	)
	if !out.Total.Equal(c.Amount) {
		s.logger.Warn("charged amount differs from ledger total",
			"transaction_id", c.TransactionID, "charged", c.Amount.StringFixed(2), "ledger", out.Total.StringFixed(2))
	}
	return out, nil
}

// linePrice is the cart price when one was sent, otherwise the current
// catalog price, or zero for a book the catalog does not know.
func (s *service) linePrice(ctx context.Context, tx TxStore, isbn string, sent *decimal.Decimal) (decimal.Decimal, error) {
	if sent != nil && !sent.IsZero() {
		return *sent, nil
	}
	price, ok, err := tx.UnitPrice(ctx, isbn)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return price, nil
}

func (s *service) Receipt(ctx context.Context, transactionID string) (*Receipt, error) {
	lines, err := s.store.ReceiptLines(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load receipt %s: %w", transactionID, err)
	}
	return BuildReceipt(transactionID, lines)
}

func (s *service) Years(ctx context.Context) ([]int, error) {
	years, err := s.store.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales years: %w", err)
	}
	if years == nil {
		years = []int{}
	}
	return years, nil
}

// YearlyReport returns twelve months of sales for every title sold in year.
func (s *service) YearlyReport(ctx context.Context, year int) (map[string][]MonthlySales, error) {
	rows, err := s.store.MonthRows(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("sales report %d: %w", year, err)
	}
	return BuildYearlyReport(rows), nil
}
