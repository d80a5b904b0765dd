// internal/purchasing/implementation.go
package purchasing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"bookstore/internal/notify"
	"bookstore/pkg/apperr"
)

// service implements the Service interface.
type service struct {
	store    Store
	notifier notify.Publisher
	logger   *slog.Logger
	restocks metric.Int64Counter
	units    metric.Int64Counter
}

// NewService creates a new purchasing service instance.
func NewService(store Store, notifier notify.Publisher, logger *slog.Logger) Service {
	meter := otel.Meter("bookstore/purchasing")
	restocks, _ := meter.Int64Counter("purchasing.restocks",
		metric.WithDescription("Purchase records committed"))
	units, _ := meter.Int64Counter("purchasing.units_received",
		metric.WithDescription("Book units added to stock"))

	return &service{
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "purchasing"),
		restocks: restocks,
		units:    units,
	}
}

func (s *service) Record(ctx context.Context, p NewPurchase) (*Created, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var created *Created
	var units int64
	err := s.store.WithinTx(ctx, "purchasing.restock", func(tx TxStore) error {
		publisher, ok, err := tx.PublisherName(ctx, p.PublisherID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPublisherNotFound
		}

		id, err := tx.InsertRecord(ctx, p.Date, p.PublisherID, p.AdminID)
		if err != nil {
			return fmt.Errorf("insert purchase record: %w", err)
		}

		total := decimal.Zero
		lines := make([]CreatedLine, 0, len(p.Stock))
		for _, line := range p.Stock {
			exists, err := tx.BookExists(ctx, line.ISBN)
			if err != nil {
				return err
			}
			if !exists {
				return apperr.NotFoundf("book with ISBN %s not found", line.ISBN)
			}

			cost := line.TotalCost()
			if err := tx.InsertItem(ctx, id, line, cost); err != nil {
				return fmt.Errorf("insert purchase item %s: %w", line.ISBN, err)
			}
			if err := tx.Restock(ctx, line.ISBN, line.Quantity); err != nil {
				return err
			}
			total = total.Add(cost)
			units += int64(line.Quantity)
			lines = append(lines, CreatedLine{ISBN: line.ISBN, Quantity: line.Quantity})
		}

		admin, ok, err := tx.AdminName(ctx, p.AdminID)
		if err != nil {
			return err
		}
		if !ok {
			admin = unknownAdmin
		}

		created = &Created{
			ID:          id,
			RecordedBy:  admin,
			Date:        p.Date,
			Publisher:   publisher,
			PublisherID: p.PublisherID,
			TotalCost:   total,
			Stock:       lines,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	s.restocks.Add(ctx, 1)
	s.units.Add(ctx, units)
	s.logger.Info("purchase recorded",
		"purchase_id", created.ID,
		"publisher_id", p.PublisherID,
		"lines", len(created.Stock),
		"total_cost", created.TotalCost.StringFixed(2),
	)
	s.notifier.Publish(ctx, notify.New("New Purchase added!", "From: "+created.Publisher))
	return created, nil
}

// List returns every purchase record newest first with its items.
func (s *service) List(ctx context.Context) ([]Record, error) {
	headers, err := s.store.Headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchase records: %w", err)
	}
	if len(headers) == 0 {
		return []Record{}, nil
	}

	ids := make([]int64, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	items, err := s.store.Items(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list purchase items: %w", err)
	}
	return assemble(headers, items), nil
}
