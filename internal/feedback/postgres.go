// internal/feedback/postgres.go
package feedback

import (
	"context"
	"fmt"

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

func (s *PostgresStore) ForBook(ctx context.Context, isbn string) ([]Feedback, error) {
	rows := []Feedback{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT feedback_id, book_isbn, rating, comment
		FROM feedback
		WHERE book_isbn = $1
		ORDER BY feedback_id DESC`, isbn)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) Insert(ctx context.Context, f NewFeedback) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO feedback (book_isbn, rating, comment) VALUES ($1, $2, $3) RETURNING feedback_id`,
		f.ISBN, f.Rating, f.Comment)
	if database.IsForeignKeyViolation(err) {
		return 0, catalog.ErrBookNotFound
	}
	return id, err
}

func (s *PostgresStore) Update(ctx context.Context, e Edit) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET rating = $1, comment = $2 WHERE feedback_id = $3`, e.Rating, e.Comment, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback WHERE feedback_id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}
