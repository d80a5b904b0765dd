// internal/catalog/queries.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bookstore/pkg/database"
)

// The functions below are the stock and price primitives the checkout and
// restock orchestrators compose inside their own transactions.

// UnitPrice returns the current price of a book. ok is false when the book
// does not exist.
func UnitPrice(ctx context.Context, q database.Querier, isbn string) (price decimal.Decimal, ok bool, err error) {
	err = q.GetContext(ctx, &price, `SELECT unit_price FROM book WHERE book_isbn = $1`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get unit price: %w", err)
	}
	return price, true, nil
}

// ApplySale moves qty units from stock to sales. Stock is not floored at zero.
func ApplySale(ctx context.Context, q database.Querier, isbn string, qty int) error {
	res, err := q.ExecContext(ctx, `UPDATE book SET stock = stock - $1, sales = sales + $1 WHERE book_isbn = $2`, qty, isbn)
	if err != nil {
		return fmt.Errorf("apply sale to %s: %w", isbn, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("apply sale to %s: %w", isbn, ErrBookNotFound)
	}
	return nil
}

// Restock adds qty units to a book's stock.
func Restock(ctx context.Context, q database.Querier, isbn string, qty int) error {
	res, err := q.ExecContext(ctx, `UPDATE book SET stock = stock + $1 WHERE book_isbn = $2`, qty, isbn)
	if err != nil {
		return fmt.Errorf("restock %s: %w", isbn, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("restock %s: %w", isbn, ErrBookNotFound)
	}
	return nil
}

// PublisherName returns a publisher's name. ok is false when the id is
// unknown.
func PublisherName(ctx context.Context, q database.Querier, id int64) (name string, ok bool, err error) {
	err = q.GetContext(ctx, &name, `SELECT publisher_name FROM publisher WHERE publisher_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get publisher %d: %w", id, err)
	}
	return name, true, nil
}

// BookExists reports whether a book with isbn is in the catalog.
func BookExists(ctx context.Context, q database.Querier, isbn string) (bool, error) {
	var exists bool
	if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM book WHERE book_isbn = $1)`, isbn); err != nil {
		return false, fmt.Errorf("check book %s: %w", isbn, err)
	}
	return exists, nil
}
