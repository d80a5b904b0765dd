// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bookstore/pkg/apperr"
	"bookstore/pkg/database"
)

const bookView = `
	SELECT
		b.book_isbn      AS isbn,
		b.book_name      AS title,
		b.unit_price     AS price,
		b.stock,
		b.sales,
		b.author,
		g.genre          AS genre,
		t.book_type      AS type,
		p.publisher_name AS publisher,
		b.book_img       AS image
	FROM book b
	JOIN publisher p ON b.publisher_id = p.publisher_id
	LEFT JOIN genre g ON b.genre_id = g.genre_id
	LEFT JOIN book_type t ON b.book_type_id = t.book_type_id
`

type dictTable struct {
	table   string
	idCol   string
	nameCol string
	bookCol string
}

var dictTables = map[Dictionary]dictTable{
	Genres:     {table: "genre", idCol: "genre_id", nameCol: "genre", bookCol: "genre_id"},
	Types:      {table: "book_type", idCol: "book_type_id", nameCol: "book_type", bookCol: "book_type_id"},
	Publishers: {table: "publisher", idCol: "publisher_id", nameCol: "publisher_name", bookCol: "publisher_id"},
}

// PostgresStore is the Postgres implementation of Store.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a catalog store on db.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListBooks(ctx context.Context) ([]Book, error) {
	books := []Book{}
	if err := s.db.SelectContext(ctx, &books, bookView+` ORDER BY b.book_name`); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *PostgresStore) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return getBook(ctx, s.db, isbn)
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]Book, error) {
	books := []Book{}
	var err error
	if query == "" {
		err = s.db.SelectContext(ctx, &books, bookView+` ORDER BY b.book_name LIMIT $1`, limit)
	} else {
		err = s.db.SelectContext(ctx, &books, bookView+`
			WHERE b.book_name ILIKE $1 OR b.author ILIKE $1 OR b.book_isbn ILIKE $1
			   OR g.genre ILIKE $1 OR t.book_type ILIKE $1
			ORDER BY b.book_name
			LIMIT $2`, database.ContainsPattern(query), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

func (s *PostgresStore) Names(ctx context.Context, dict Dictionary) ([]string, error) {
	t, ok := dictTables[dict]
	if !ok {
		return nil, fmt.Errorf("unknown dictionary %d", dict)
	}
	names := []string{}
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, t.nameCol, t.table, t.nameCol)
	if err := s.db.SelectContext(ctx, &names, q); err != nil {
		return nil, fmt.Errorf("list %s names: %w", dict, err)
	}
	return names, nil
}

func (s *PostgresStore) ListPublishers(ctx context.Context) ([]Publisher, error) {
	pubs := []Publisher{}
	err := s.db.SelectContext(ctx, &pubs, `SELECT publisher_id, publisher_name FROM publisher ORDER BY publisher_id`)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	return pubs, nil
}

func (s *PostgresStore) PublisherByName(ctx context.Context, name string) (*Publisher, error) {
	var p Publisher
	err := s.db.GetContext(ctx, &p, `SELECT publisher_id, publisher_name FROM publisher WHERE publisher_name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPublisherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get publisher: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) InsertPublisher(ctx context.Context, name string) (*Publisher, error) {
	p := Publisher{Name: name}
	err := s.db.QueryRowxContext(ctx, `INSERT INTO publisher (publisher_name) VALUES ($1) RETURNING publisher_id`, name).Scan(&p.ID)
	if database.IsUniqueViolation(err) {
		existing, lookupErr := s.PublisherByName(ctx, name)
		if lookupErr != nil {
			return nil, apperr.Conflictf("publisher already exists")
		}
		return nil, &PublisherExistsError{ID: existing.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("insert publisher: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error {
	return s.db.InTx(ctx, name, func(tx *sqlx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sqlx.Tx
}

func (p *pgTx) LookupOrCreate(ctx context.Context, dict Dictionary, name string) (int64, error) {
	t := dictTables[dict]
	var id int64
	q := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s) VALUES ($1)
		ON CONFLICT (%[2]s) DO UPDATE SET %[2]s = EXCLUDED.%[2]s
		RETURNING %[3]s`, t.table, t.nameCol, t.idCol)
	if err := p.tx.QueryRowxContext(ctx, q, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup or create %s %q: %w", dict, name, err)
	}
	return id, nil
}

func (p *pgTx) EntryID(ctx context.Context, dict Dictionary, name string) (int64, error) {
	t := dictTables[dict]
	var id int64
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, t.idCol, t.table, t.nameCol)
	err := p.tx.GetContext(ctx, &id, q, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFoundf("%s %q not found", dict, name)
	}
	if err != nil {
		return 0, fmt.Errorf("find %s: %w", dict, err)
	}
	return id, nil
}

func (p *pgTx) NullifyReferences(ctx context.Context, dict Dictionary, id int64) error {
	t := dictTables[dict]
	q := fmt.Sprintf(`UPDATE book SET %s = NULL WHERE %s = $1`, t.bookCol, t.bookCol)
	if _, err := p.tx.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("clear %s references: %w", dict, err)
	}
	return nil
}

func (p *pgTx) CountReferences(ctx context.Context, dict Dictionary, id int64) (int, error) {
	t := dictTables[dict]
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM book WHERE %s = $1`, t.bookCol)
	if err := p.tx.GetContext(ctx, &n, q, id); err != nil {
		return 0, fmt.Errorf("count %s references: %w", dict, err)
	}
	return n, nil
}

func (p *pgTx) DeleteEntry(ctx context.Context, dict Dictionary, id int64) error {
	t := dictTables[dict]
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.table, t.idCol)
	if _, err := p.tx.ExecContext(ctx, q, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperr.Conflictf("%s is still referenced", dict)
		}
		return fmt.Errorf("delete %s: %w", dict, err)
	}
	return nil
}

func (p *pgTx) BookSummary(ctx context.Context, isbn string) (string, string, error) {
	var row struct {
		Title string `db:"book_name"`
		Image string `db:"book_img"`
	}
	err := p.tx.GetContext(ctx, &row, `SELECT book_name, book_img FROM book WHERE book_isbn = $1`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrBookNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("get book: %w", err)
	}
	return row.Title, row.Image, nil
}

func (p *pgTx) InsertBook(ctx context.Context, b BookRow) error {
	_, err := p.tx.ExecContext(ctx, `
		INSERT INTO book (book_isbn, book_name, book_img, unit_price, stock, sales, author, publisher_id, genre_id, book_type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ISBN, b.Title, b.Image, b.Price, b.Stock, b.Sales, b.Author, b.PublisherID, b.GenreID, b.TypeID)
	if database.IsUniqueViolation(err) {
		return ErrBookExists
	}
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (p *pgTx) UpdateBook(ctx context.Context, b BookRow) error {
	res, err := p.tx.ExecContext(ctx, `
		UPDATE book SET
			book_name = $2, book_img = $3, unit_price = $4, stock = $5, sales = $6,
			author = $7, publisher_id = $8, genre_id = $9, book_type_id = $10
		WHERE book_isbn = $1`,
		b.ISBN, b.Title, b.Image, b.Price, b.Stock, b.Sales, b.Author, b.PublisherID, b.GenreID, b.TypeID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (p *pgTx) DeleteBook(ctx context.Context, isbn string) error {
	_, err := p.tx.ExecContext(ctx, `DELETE FROM book WHERE book_isbn = $1`, isbn)
	if database.IsForeignKeyViolation(err) {
		return ErrBookReferenced
	}
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

func (p *pgTx) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return getBook(ctx, p.tx, isbn)
}

func getBook(ctx context.Context, q database.Querier, isbn string) (*Book, error) {
	var b Book
	err := q.GetContext(ctx, &b, bookView+` WHERE b.book_isbn = $1`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}
