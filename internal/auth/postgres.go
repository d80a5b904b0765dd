// internal/auth/postgres.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/pkg/database"
)

const adminColumns = `admin_id, admin_name, password_hash, password_salt, gender, email, contact_num, position`

// PostgresStore is the Postgres implementation of Store.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, a Admin) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO admin (`+adminColumns+`)
		VALUES (:admin_id, :admin_name, :password_hash, :password_salt, :gender, :email, :contact_num, :position)`, a)
	if database.IsUniqueViolation(err) {
		return ErrAdminExists
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Admin, error) {
	var a Admin
	err := s.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin WHERE admin_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := s.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin WHERE lower(email) = lower($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, hash, salt string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admin SET password_hash = $1, password_salt = $2 WHERE admin_id = $3`, hash, salt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAdminNotFound
	}
	return nil
}

// AdminName returns the name of an admin for records that reference one. ok
// is false when the id is unknown.
func AdminName(ctx context.Context, q database.Querier, id int64) (name string, ok bool, err error) {
	err = q.GetContext(ctx, &name, `SELECT admin_name FROM admin WHERE admin_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get admin name: %w", err)
	}
	return name, true, nil
}
