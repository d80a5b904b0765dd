// internal/sales/domain.go
package sales

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bookstore/pkg/apperr"
)

const dateLayout = "2006-01-02"

var (
	// ErrAlreadyProcessed reports a redelivered payment confirmation. Nothing
	// was written.
	ErrAlreadyProcessed   = apperr.New(apperr.ErrConflict, "payment already processed")
	ErrReceiptNotFound    = apperr.New(apperr.ErrNotFound, "Transaction not found")
	ErrInvalidYear        = apperr.New(apperr.ErrInvalid, "year must be a 4-digit number")
	ErrEmptyCart          = apperr.New(apperr.ErrInvalid, "payment metadata has no items")
	ErrMissingTransaction = apperr.New(apperr.ErrInvalid, "transaction id is required")
)

// CartItem is one line of a paid cart, as carried in the payment metadata.
// A missing or zero Price falls back to the book's current catalog price.
type CartItem struct {
	ISBN     string           `json:"book_ISBN"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// PaymentConfirmation is a verified payment_intent.succeeded event.
type PaymentConfirmation struct {
	TransactionID string
	Amount        decimal.Decimal
	Items         []CartItem
	MemberID      *int64
}

func (c PaymentConfirmation) Validate() error {
	if strings.TrimSpace(c.TransactionID) == "" {
		return ErrMissingTransaction
	}
	return ValidateCart(c.Items)
}

// ValidateCart checks the lines of a cart. The same rules apply when an
// intent is created and when its payment is confirmed.
func ValidateCart(items []CartItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for i, it := range items {
		if strings.TrimSpace(it.ISBN) == "" {
			return apperr.Invalidf("item %d has no book_ISBN", i)
		}
		if it.Quantity <= 0 {
			return apperr.Invalidf("item %d (%s) must have a positive quantity", i, it.ISBN)
		}
		if it.Price != nil && it.Price.IsNegative() {
			return apperr.Invalidf("item %d (%s) has a negative price", i, it.ISBN)
		}
	}
	return nil
}

// DecodeMetadata parses the items JSON and optional member id a payment
// intent was created with.
func DecodeMetadata(items, memberID string) ([]CartItem, *int64, error) {
	var cart []CartItem
	if err := json.Unmarshal([]byte(items), &cart); err != nil {
		return nil, nil, apperr.Invalidf("invalid items metadata: %v", err)
	}
	if len(cart) == 0 {
		return nil, nil, ErrEmptyCart
	}

	memberID = strings.TrimSpace(memberID)
	if memberID == "" || memberID == "null" {
		return cart, nil, nil
	}
	id, err := strconv.ParseInt(memberID, 10, 64)
	if err != nil || id <= 0 {
		return nil, nil, apperr.Invalidf("invalid member id %q", memberID)
	}
	return cart, &id, nil
}

// SaleRecord is one appended sales ledger row.
type SaleRecord struct {
	TransactionID string
	ISBN          string
	Quantity      int
	TotalPrice    decimal.Decimal
	Date          string
	MemberID      *int64
}

// Outcome summarizes an applied checkout.
type Outcome struct {
	TransactionID  string          `json:"transactionId"`
	Lines          int             `json:"lines"`
	Total          decimal.Decimal `json:"total"`
	MemberCredited bool            `json:"memberCredited"`
}

// ReceiptLine is a sales record joined with its book, as read back for a
// receipt.
type ReceiptLine struct {
	Name       string          `db:"book_name"`
	Quantity   int             `db:"quantity"`
	TotalPrice decimal.Decimal `db:"total_price"`
	Date       time.Time       `db:"transaction_date"`
	MemberID   *int64          `db:"member_id"`
	MemberName *string         `db:"member_name"`
}

type ReceiptItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

type ReceiptMember struct {
	ID   int64  `json:"member_ID"`
	Name string `json:"member_name"`
}

// Receipt is the e-receipt for one transaction.
type Receipt struct {
	Date          string          `json:"date"`
	Items         []ReceiptItem   `json:"items"`
	Discount      string          `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	TransactionID string          `json:"transactionId"`
	Member        *ReceiptMember  `json:"member"`
}

// BuildReceipt assembles a receipt from the ledger rows of a transaction.
// The unit price shown is the price the line was sold at.
func BuildReceipt(txnID string, lines []ReceiptLine) (*Receipt, error) {
	if len(lines) == 0 {
		return nil, ErrReceiptNotFound
	}

	r := &Receipt{
		Date:          lines[0].Date.Format(dateLayout),
		Items:         make([]ReceiptItem, 0, len(lines)),
		Discount:      "NONE",
		Total:         decimal.Zero,
		TransactionID: txnID,
	}
	for _, l := range lines {
		price := decimal.Zero
		if l.Quantity > 0 {
			price = l.TotalPrice.Div(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		}
		r.Items = append(r.Items, ReceiptItem{Name: l.Name, Quantity: l.Quantity, Price: price, Total: l.TotalPrice})
		r.Total = r.Total.Add(l.TotalPrice)
	}

	if first := lines[0]; first.MemberID != nil {
		m := &ReceiptMember{ID: *first.MemberID}
		if first.MemberName != nil {
			m.Name = *first.MemberName
		}
		r.Member = m
	}
	return r, nil
}

// MonthlySales is one month of a book's yearly report.
type MonthlySales struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitsSold int             `json:"units_sold"`
	Total     decimal.Decimal `json:"total"`
}

// MonthRow is the ledger aggregated per book title and month.
type MonthRow struct {
	Title     string          `db:"book_name"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Month     int             `db:"month"`
	UnitsSold int             `db:"units_sold"`
	Total     decimal.Decimal `db:"total"`
}

// BuildYearlyReport expands aggregated rows into twelve months per title.
// Months without sales carry the title's current price and zero totals;
// rows for the same title and month are summed.
func BuildYearlyReport(rows []MonthRow) map[string][]MonthlySales {
	report := make(map[string][]MonthlySales)
	for _, row := range rows {
		months, ok := report[row.Title]
		if !ok {
			months = make([]MonthlySales, 12)
			for i := range months {
				months[i] = MonthlySales{UnitPrice: row.UnitPrice, Total: decimal.Zero}
			}
			report[row.Title] = months
		}
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		m := &months[row.Month-1]
		m.UnitsSold += row.UnitsSold
		m.Total = m.Total.Add(row.Total)
	}
	return report
}

// ParseYear accepts exactly four digits.
func ParseYear(raw string) (int, error) {
	if len(raw) != 4 {
		return 0, ErrInvalidYear
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, ErrInvalidYear
		}
	}
	year, _ := strconv.Atoi(raw)
	return year, nil
}
