// internal/feedback/service.go
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Service defines the interface for the feedback service.
type Service interface {
	ForBook(ctx context.Context, isbn string) ([]Feedback, error)
	Submit(ctx context.Context, f NewFeedback) (int64, error)
	Edit(ctx context.Context, e Edit) error
	Delete(ctx context.Context, id int64) error
}

type Store interface {
	// ForBook returns a book's feedback, newest first.
	ForBook(ctx context.Context, isbn string) ([]Feedback, error)
	Insert(ctx context.Context, f NewFeedback) (int64, error)
	Update(ctx context.Context, e Edit) error
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) Service {
	return &service{store: store, logger: logger.With("component", "feedback")}
}

func (s *service) ForBook(ctx context.Context, isbn string) ([]Feedback, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, ErrMissingISBN
	}
	return s.store.ForBook(ctx, isbn)
}

func (s *service) Submit(ctx context.Context, f NewFeedback) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	f.ISBN = strings.TrimSpace(f.ISBN)
	f.Comment = strings.TrimSpace(f.Comment)

	id, err := s.store.Insert(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("submit feedback for %s: %w", f.ISBN, err)
	}
	s.logger.Info("feedback submitted", "feedback_id", id, "isbn", f.ISBN, "rating", f.Rating)
	return id, nil
}

func (s *service) Edit(ctx context.Context, e Edit) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Comment = strings.TrimSpace(e.Comment)
	return s.store.Update(ctx, e)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
