// internal/purchasing/postgres.go
package purchasing

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/pkg/database"
)

// PostgresStore is the Postgres implementation of Store.
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

func (s *PostgresStore) Headers(ctx context.Context) ([]RecordRow, error) {
	var rows []RecordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT pr.purchase_id,
		       pr.date,
		       COALESCE(a.admin_name, $1) AS recorded_by,
		       COALESCE(p.publisher_name, $2) AS publisher,
		       pr.publisher_id
		FROM purchase_record pr
		LEFT JOIN admin a ON a.admin_id = pr.admin_id
		LEFT JOIN publisher p ON p.publisher_id = pr.publisher_id
		ORDER BY pr.date DESC, pr.purchase_id DESC`, unknownAdmin, deletedPublisher)
	return rows, err
}

func (s *PostgresStore) Items(ctx context.Context, purchaseIDs []int64) ([]ItemRow, error) {
	var rows []ItemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT pi.purchase_id, b.book_name, pi.book_qty, b.unit_price
		FROM purchase_item pi
		JOIN book b ON b.book_isbn = pi.book_isbn
		WHERE pi.purchase_id = ANY($1)
		ORDER BY pi.item_id`, pq.Array(purchaseIDs))
	return rows, err
}

type pgTx struct {
	tx *sqlx.Tx
}

func (p pgTx) PublisherName(ctx context.Context, id int64) (string, bool, error) {
	return catalog.PublisherName(ctx, p.tx, id)
}

func (p pgTx) AdminName(ctx context.Context, id int64) (string, bool, error) {
	return auth.AdminName(ctx, p.tx, id)
}

func (p pgTx) BookExists(ctx context.Context, isbn string) (bool, error) {
	return catalog.BookExists(ctx, p.tx, isbn)
}

func (p pgTx) InsertRecord(ctx context.Context, date string, publisherID, adminID int64) (int64, error) {
	var id int64
	err := p.tx.QueryRowxContext(ctx,
		`INSERT INTO purchase_record (date, publisher_id, admin_id) VALUES ($1, $2, $3) RETURNING purchase_id`,
		date, publisherID, adminID).Scan(&id)
	return id, err
}

func (p pgTx) InsertItem(ctx context.Context, purchaseID int64, line StockLine, totalCost decimal.Decimal) error {
	_, err := p.tx.ExecContext(ctx,
		`INSERT INTO purchase_item (purchase_id, book_isbn, book_qty, total_cost) VALUES ($1, $2, $3, $4)`,
		purchaseID, line.ISBN, line.Quantity, totalCost)
	return err
}

func (p pgTx) Restock(ctx context.Context, isbn string, qty int) error {
	return catalog.Restock(ctx, p.tx, isbn, qty)
}
