// internal/catalog/domain.go
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"bookstore/pkg/apperr"
)

var (
	ErrBookNotFound       = apperr.New(apperr.ErrNotFound, "book not found")
	ErrBookExists         = apperr.New(apperr.ErrConflict, "a book with this ISBN already exists")
	ErrBookReferenced     = apperr.New(apperr.ErrConflict, "book has sales or purchase history and cannot be deleted")
	ErrPublisherNotFound  = apperr.New(apperr.ErrNotFound, "publisher not found")
	ErrDictionaryNotFound = apperr.New(apperr.ErrNotFound, "entry not found")
)

// Book is the joined catalog view served to the storefront and back office.
type Book struct {
	ISBN      string          `json:"isbn" db:"isbn"`
	Title     string          `json:"title" db:"title"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	Sales     int             `json:"sales" db:"sales"`
	Author    string          `json:"author" db:"author"`
	Genre     *string         `json:"genre" db:"genre"`
	Type      *string         `json:"type" db:"type"`
	Publisher string          `json:"publisher" db:"publisher"`
	Image     string          `json:"image" db:"image"`
}

// Publisher is a book publisher.
type Publisher struct {
	ID   int64  `json:"publisher_ID" db:"publisher_id"`
	Name string `json:"publisher_name" db:"publisher_name"`
}

// BookInput carries an admin create or update. Dictionary values are names;
// the catalog resolves them to ids, creating missing entries.
type BookInput struct {
	ISBN      string
	Title     string
	Price     decimal.Decimal
	Stock     int
	Sales     int
	Genre     string
	Type      string
	Publisher string
	Author    string
	Image     string
}

// Validate checks the fields every book write requires.
func (in BookInput) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"isbn", in.ISBN},
		{"title", in.Title},
		{"genre", in.Genre},
		{"type", in.Type},
		{"publisher", in.Publisher},
		{"author", in.Author},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Invalidf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if in.Price.IsNegative() {
		return apperr.Invalidf("price must not be negative")
	}
	if in.Stock < 0 || in.Sales < 0 {
		return apperr.Invalidf("stock and sales must not be negative")
	}
	return nil
}

// Dictionary names one of the lookup tables referenced by books.
type Dictionary int

const (
	Genres Dictionary = iota
	Types
	Publishers
)

func (d Dictionary) String() string {
	switch d {
	case Genres:
		return "genre"
	case Types:
		return "type"
	case Publishers:
		return "publisher"
	default:
		return "unknown"
	}
}

// DeletionPolicy decides what happens to books when a dictionary entry they
// reference is deleted.
type DeletionPolicy int

const (
	// Restrict refuses the deletion while any book references the entry.
	Restrict DeletionPolicy = iota
	// NullifyReferences clears the reference on every book, then deletes.
	NullifyReferences
)

// Policy returns the deletion policy of the dictionary.
func (d Dictionary) Policy() DeletionPolicy {
	switch d {
	case Genres, Types:
		return NullifyReferences
	default:
		return Restrict
	}
}
