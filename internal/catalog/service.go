// internal/catalog/service.go
package catalog

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the catalog service.
type Service interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, isbn string) (*Book, error)
	Search(ctx context.Context, query string) ([]Book, error)
	AddBook(ctx context.Context, in BookInput, image *Upload) (*Book, error)
	UpdateBook(ctx context.Context, in BookInput, image *Upload) (*Book, error)
	DeleteBook(ctx context.Context, isbn string) error

	Names(ctx context.Context, dict Dictionary) ([]string, error)
	DeleteEntry(ctx context.Context, dict Dictionary, name string) error

	ListPublishers(ctx context.Context) ([]Publisher, error)
	PublisherByName(ctx context.Context, name string) (*Publisher, error)
	AddPublisher(ctx context.Context, name string) (*Publisher, error)
}

// Upload is an image attached to a book write.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the persistence the catalog service runs on.
type Store interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, isbn string) (*Book, error)
	Search(ctx context.Context, query string, limit int) ([]Book, error)
	Names(ctx context.Context, dict Dictionary) ([]string, error)
	ListPublishers(ctx context.Context) ([]Publisher, error)
	PublisherByName(ctx context.Context, name string) (*Publisher, error)
	InsertPublisher(ctx context.Context, name string) (*Publisher, error)

	// WithinTx runs fn against a transactional view of the store. Any error
	// returned by fn rolls back everything fn wrote.
	WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error
}

// TxStore is the write side of the catalog, valid only inside WithinTx.
type TxStore interface {
	LookupOrCreate(ctx context.Context, dict Dictionary, name string) (int64, error)
	EntryID(ctx context.Context, dict Dictionary, name string) (int64, error)
	NullifyReferences(ctx context.Context, dict Dictionary, id int64) error
	CountReferences(ctx context.Context, dict Dictionary, id int64) (int, error)
	DeleteEntry(ctx context.Context, dict Dictionary, id int64) error

	BookSummary(ctx context.Context, isbn string) (title, image string, err error)
	InsertBook(ctx context.Context, row BookRow) error
	UpdateBook(ctx context.Context, row BookRow) error
	DeleteBook(ctx context.Context, isbn string) error
	GetBook(ctx context.Context, isbn string) (*Book, error)
}

// BookRow is a book as stored, with dictionary references resolved to ids.
type BookRow struct {
	ISBN        string
	Title       string
	Image       string
	Price       decimal.Decimal
	Stock       int
	Sales       int
	Author      string
	PublisherID int64
	GenreID     *int64
	TypeID      *int64
}
