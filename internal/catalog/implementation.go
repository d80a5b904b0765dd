// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstore/internal/notify"
	"bookstore/pkg/apperr"
)

const searchLimit = 50

// PublisherExistsError reports a publisher create for a name already taken.
type PublisherExistsError struct {
	ID int64
}

func (e *PublisherExistsError) Error() string { return "publisher already exists" }
func (e *PublisherExistsError) Unwrap() error { return apperr.ErrConflict }

// service implements the Service interface.
type service struct {
	store    Store
	images   *ImageStore
	notifier notify.Publisher
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(store Store, images *ImageStore, notifier notify.Publisher, logger *slog.Logger) Service {
	return &service{
		store:    store,
		images:   images,
		notifier: notifier,
		logger:   logger.With("component", "catalog"),
		tracer:   otel.Tracer("bookstore/catalog"),
	}
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.store.ListBooks(ctx)
}

// GetBook looks a single book up by ISBN, as the barcode scanner does.
func (s *service) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return s.store.GetBook(ctx, strings.TrimSpace(isbn))
}

// Search matches title, author, ISBN, genre and type case-insensitively.
// An empty query returns the first page of the catalog.
func (s *service) Search(ctx context.Context, query string) ([]Book, error) {
	return s.store.Search(ctx, strings.TrimSpace(query), searchLimit)
}

// AddBook stores a new book, creating its publisher, genre and type on first
// use. The image is written before the transaction and removed again if the
// transaction fails.
func (s *service) AddBook(ctx context.Context, in BookInput, image *Upload) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_book", trace.WithAttributes(attribute.String("book.isbn", in.ISBN)))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	uploaded := ""
	if image != nil {
		p, err := s.images.Save(image)
		if err != nil {
			return nil, err
		}
		uploaded = p
		in.Image = p
	}

	var book *Book
	err := s.store.WithinTx(ctx, "catalog.add_book", func(tx TxStore) error {
		row, err := resolve(ctx, tx, in)
		if err != nil {
			return err
		}
		if err := tx.InsertBook(ctx, row); err != nil {
			return err
		}
		book, err = tx.GetBook(ctx, in.ISBN)
		return err
	})
	if err != nil {
		s.discard(uploaded)
		span.RecordError(err)
		return nil, fmt.Errorf("add book %s: %w", in.ISBN, err)
	}

	s.notifier.Publish(ctx, notify.New("New Book Added!", "Name: "+in.Title))
	return book, nil
}

// UpdateBook rewrites a book. A new image replaces the old one, which is
// deleted once the update commits; otherwise in.Image is kept as given.
func (s *service) UpdateBook(ctx context.Context, in BookInput, image *Upload) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book", trace.WithAttributes(attribute.String("book.isbn", in.ISBN)))
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	uploaded := ""
	if image != nil {
		p, err := s.images.Save(image)
		if err != nil {
			return nil, err
		}
		uploaded = p
		in.Image = p
	}

	var (
		book     *Book
		oldImage string
	)
	err := s.store.WithinTx(ctx, "catalog.update_book", func(tx TxStore) error {
		_, current, err := tx.BookSummary(ctx, in.ISBN)
		if err != nil {
			return err
		}
		oldImage = current

		row, err := resolve(ctx, tx, in)
		if err != nil {
			return err
		}
		if err := tx.UpdateBook(ctx, row); err != nil {
			return err
		}
		book, err = tx.GetBook(ctx, in.ISBN)
		return err
	})
	if err != nil {
		s.discard(uploaded)
		span.RecordError(err)
		return nil, fmt.Errorf("update book %s: %w", in.ISBN, err)
	}

	if uploaded != "" && oldImage != "" && oldImage != uploaded {
		s.discard(oldImage)
	}
	return book, nil
}

// DeleteBook removes a book that has no sales or purchase history.
func (s *service) DeleteBook(ctx context.Context, isbn string) error {
	var title, image string
	err := s.store.WithinTx(ctx, "catalog.delete_book", func(tx TxStore) error {
		var err error
		title, image, err = tx.BookSummary(ctx, isbn)
		if err != nil {
			return err
		}
		return tx.DeleteBook(ctx, isbn)
	})
	if err != nil {
		return fmt.Errorf("delete book %s: %w", isbn, err)
	}

	s.discard(image)
	s.notifier.Publish(ctx, notify.New("Book Deleted!", "Name: "+title))
	return nil
}

func (s *service) Names(ctx context.Context, dict Dictionary) ([]string, error) {
	return s.store.Names(ctx, dict)
}

// DeleteEntry deletes a dictionary entry according to the dictionary's
// deletion policy, in one transaction.
func (s *service) DeleteEntry(ctx context.Context, dict Dictionary, name string) error {
	err := s.store.WithinTx(ctx, "catalog.delete_"+dict.String(), func(tx TxStore) error {
		id, err := tx.EntryID(ctx, dict, name)
		if err != nil {
			return err
		}

		switch dict.Policy() {
		case NullifyReferences:
			if err := tx.NullifyReferences(ctx, dict, id); err != nil {
				return err
			}
		case Restrict:
			n, err := tx.CountReferences(ctx, dict, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflictf("%s %q is used by %d books", dict, name, n)
			}
		}
		return tx.DeleteEntry(ctx, dict, id)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", dict, err)
	}
	return nil
}

func (s *service) ListPublishers(ctx context.Context) ([]Publisher, error) {
	return s.store.ListPublishers(ctx)
}

func (s *service) PublisherByName(ctx context.Context, name string) (*Publisher, error) {
	return s.store.PublisherByName(ctx, name)
}

// AddPublisher creates a publisher. An existing name yields a
// *PublisherExistsError carrying the existing id.
func (s *service) AddPublisher(ctx context.Context, name string) (*Publisher, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalidf("publisher name cannot be empty")
	}

	existing, err := s.store.PublisherByName(ctx, name)
	switch {
	case err == nil:
		return nil, &PublisherExistsError{ID: existing.ID}
	case !errors.Is(err, ErrPublisherNotFound):
		return nil, err
	}

	return s.store.InsertPublisher(ctx, name)
}

func (s *service) discard(publicPath string) {
	if publicPath == "" {
		return
	}
	if err := s.images.Remove(publicPath); err != nil {
		s.logger.Warn("failed to remove book image", "path", publicPath, "error", err)
	}
}

// resolve maps dictionary names to ids, creating missing entries.
func resolve(ctx context.Context, tx TxStore, in BookInput) (BookRow, error) {
	publisherID, err := tx.LookupOrCreate(ctx, Publishers, strings.TrimSpace(in.Publisher))
	if err != nil {
		return BookRow{}, err
	}
	genreID, err := tx.LookupOrCreate(ctx, Genres, strings.TrimSpace(in.Genre))
	if err != nil {
		return BookRow{}, err
	}
	typeID, err := tx.LookupOrCreate(ctx, Types, strings.TrimSpace(in.Type))
	if err != nil {
		return BookRow{}, err
	}

	return BookRow{
		ISBN:        strings.TrimSpace(in.ISBN),
		Title:       in.Title,
		Image:       in.Image,
		Price:       in.Price,
		Stock:       in.Stock,
		Sales:       in.Sales,
		Author:      in.Author,
		PublisherID: publisherID,
		GenreID:     &genreID,
		TypeID:      &typeID,
	}, nil
}
