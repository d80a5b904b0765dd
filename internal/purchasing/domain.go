// internal/purchasing/domain.go
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"bookstore/pkg/apperr"
)

const (
	dateLayout       = "2006-01-02"
	deletedPublisher = "Deleted Publisher"
	unknownAdmin     = "Unknown"
)

var ErrPublisherNotFound = apperr.New(apperr.ErrNotFound, "Publisher not found")

// StockLine is one restocked book.
type StockLine struct {
	ISBN      string          `json:"book_ISBN"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// TotalCost is quantity times unit price.
func (l StockLine) TotalCost() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewPurchase is the body of a purchase-record request.
type NewPurchase struct {
	PublisherID int64       `json:"publisher_ID"`
	AdminID     int64       `json:"admin_ID"`
	Date        string      `json:"date"`
	Stock       []StockLine `json:"stock"`
}

func (p NewPurchase) Validate() error {
	if p.PublisherID <= 0 {
		return apperr.Invalidf("publisher_ID is required")
	}
	if p.AdminID <= 0 {
		return apperr.Invalidf("admin_ID is required")
	}
	if _, err := time.Parse(dateLayout, p.Date); err != nil {
		return apperr.Invalidf("date must be YYYY-MM-DD, got %q", p.Date)
	}
	if len(p.Stock) == 0 {
		return apperr.Invalidf("stock must list at least one book")
	}
	for i, l := range p.Stock {
		if l.ISBN == "" {
			return apperr.Invalidf("stock item %d has no book_ISBN", i)
		}
		if l.Quantity <= 0 {
			return apperr.Invalidf("stock item %d (%s) must have a positive quantity", i, l.ISBN)
		}
		if l.UnitPrice.IsNegative() {
			return apperr.Invalidf("stock item %d (%s) has a negative unit_price", i, l.ISBN)
		}
	}
	return nil
}

type CreatedLine struct {
	ISBN     string `json:"book_ISBN"`
	Quantity int    `json:"quantity"`
}

// Created is the response to a recorded purchase.
type Created struct {
	ID          int64           `json:"purchase_ID"`
	RecordedBy  string          `json:"recordedBy"`
	Date        string          `json:"date"`
	Publisher   string          `json:"publisher"`
	PublisherID int64           `json:"publisher_ID"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Stock       []CreatedLine   `json:"stock"`
}

// RecordRow is a purchase header joined with its admin and publisher names.
type RecordRow struct {
	ID          int64     `db:"purchase_id"`
	Date        time.Time `db:"date"`
	RecordedBy  string    `db:"recorded_by"`
	Publisher   string    `db:"publisher"`
	PublisherID *int64    `db:"publisher_id"`
}

// ItemRow is a purchase item joined with its book.
type ItemRow struct {
	PurchaseID int64           `db:"purchase_id"`
	Name       string          `db:"book_name"`
	Quantity   int             `db:"book_qty"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
}

type RecordItem struct {
	Name      string          `json:"itemName"`
	Units     int             `json:"unit"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Record is a purchase as listed in the back office.
type Record struct {
	ID          int64        `json:"purchase_ID"`
	Date        string       `json:"date"`
	RecordedBy  string       `json:"recordedBy"`
	Publisher   string       `json:"publisher"`
	PublisherID *int64       `json:"publisher_ID"`
	Stock       []RecordItem `json:"stock"`
}

// assemble groups item rows under their headers, keeping header order.
func assemble(headers []RecordRow, items []ItemRow) []Record {
	byID := make(map[int64][]RecordItem, len(headers))
	for _, it := range items {
		byID[it.PurchaseID] = append(byID[it.PurchaseID], RecordItem{Name: it.Name, Units: it.Quantity, UnitPrice: it.UnitPrice})
	}

	records := make([]Record, 0, len(headers))
	for _, h := range headers {
		stock := byID[h.ID]
		if stock == nil {
			stock = []RecordItem{}
		}
		records = append(records, Record{
			ID:          h.ID,
			Date:        h.Date.Format(dateLayout),
			RecordedBy:  h.RecordedBy,
			Publisher:   h.Publisher,
			PublisherID: h.PublisherID,
			Stock:       stock,
		})
	}
	return records
}
