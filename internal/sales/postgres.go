// internal/sales/postgres.go
package sales

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bookstore/internal/catalog"
	"bookstore/internal/membership"
	"bookstore/pkg/database"
)

// PostgresStore is the Postgres implementation of Store. Checkout
// transactions compose the catalog and membership primitives on the same
// *sqlx.Tx.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error {
	return s.db.InTx(ctx, name, func(tx *sqlx.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

func (s *PostgresStore) ReceiptLines(ctx context.Context, transactionID string) ([]ReceiptLine, error) {
	var lines []ReceiptLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT b.book_name, sr.quantity, sr.total_price, sr.transaction_date, sr.member_id, m.member_name
		FROM sales_record sr
		JOIN book b ON b.book_isbn = sr.book_isbn
		LEFT JOIN membership m ON m.member_id = sr.member_id
		WHERE sr.transaction_id = $1
		ORDER BY sr.sales_id`, transactionID)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *PostgresStore) Years(ctx context.Context) ([]int, error) {
	var years []int
	err := s.db.SelectContext(ctx, &years, `
		SELECT DISTINCT EXTRACT(YEAR FROM transaction_date)::int AS year
		FROM sales_record
		ORDER BY year DESC`)
	return years, err
}

func (s *PostgresStore) MonthRows(ctx context.Context, year int) ([]MonthRow, error) {
	var rows []MonthRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT b.book_name,
		       b.unit_price,
		       EXTRACT(MONTH FROM sr.transaction_date)::int AS month,
		       SUM(sr.quantity)::int AS units_sold,
		       SUM(sr.total_price) AS total
		FROM sales_record sr
		JOIN book b ON b.book_isbn = sr.book_isbn
		WHERE sr.transaction_date >= make_date($1, 1, 1)
		  AND sr.transaction_date < make_date($2, 1, 1)
		GROUP BY b.book_isbn, b.book_name, b.unit_price, month
		ORDER BY b.book_name, month`, year, year+1)
	return rows, err
}

type pgTx struct {
	tx *sqlx.Tx
}

func (p pgTx) ClaimPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	res, err := p.tx.ExecContext(ctx, `
		INSERT INTO processed_payment (transaction_id, amount)
		VALUES ($1, $2)
		ON CONFLICT (transaction_id) DO NOTHING`, transactionID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p pgTx) UnitPrice(ctx context.Context, isbn string) (decimal.Decimal, bool, error) {
	return catalog.UnitPrice(ctx, p.tx, isbn)
}

func (p pgTx) InsertSale(ctx context.Context, rec SaleRecord) error {
	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO sales_record (book_isbn, quantity, total_price, transaction_date, member_id, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ISBN, rec.Quantity, rec.TotalPrice, rec.Date, rec.MemberID, rec.TransactionID)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", rec.ISBN, catalog.ErrBookNotFound)
	}
	return err
}

func (p pgTx) AddSpend(ctx context.Context, memberID int64, amount decimal.Decimal) (bool, error) {
	return membership.AddSpend(ctx, p.tx, memberID, amount)
}

func (p pgTx) ApplySale(ctx context.Context, isbn string, qty int) error {
	return catalog.ApplySale(ctx, p.tx, isbn, qty)
}
