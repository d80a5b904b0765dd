// internal/membership/postgres.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bookstore/pkg/database"
)

const memberColumns = `member_id, member_name, phone_num, total_spent, is_eligible_gift, gift_get`

// PostgresStore is the Postgres implementation of Store.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery, column string) ([]Member, int, error) {
	where, args := "", []any{}
	if q.Name != "" {
		where = `WHERE member_name ILIKE $1`
		args = append(args, database.ContainsPattern(q.Name))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM membership `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	// column and order come from the allow-list, never from the request.
	query := fmt.Sprintf(`SELECT %s FROM membership %s ORDER BY %s %s, member_id ASC LIMIT $%d OFFSET $%d`,
		memberColumns, where, column, q.Order(), len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	members := []Member{}
	if err := s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select members: %w", err)
	}
	return members, total, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Member, error) {
	return getMember(ctx, s.db, `SELECT `+memberColumns+` FROM membership WHERE member_id = $1`, id)
}

func (s *PostgresStore) IDByPhone(ctx context.Context, phone string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT member_id FROM membership WHERE phone_num = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPhoneNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find member by phone: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Insert(ctx context.Context, m NewMember) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO membership (member_name, phone_num) VALUES ($1, $2) RETURNING member_id`,
		m.Name, m.Phone).Scan(&id)
	if database.IsUniqueViolation(err) {
		return 0, ErrPhoneTaken
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, u MemberUpdate, eligible bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE membership
		SET member_name = $1, phone_num = $2, total_spent = $3, is_eligible_gift = $4, gift_get = $5
		WHERE member_id = $6`,
		u.Name, u.Phone, u.TotalSpent, eligible, u.GiftGet, id)
	if database.IsUniqueViolation(err) {
		return ErrPhoneTaken
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM membership WHERE member_id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error {
	return s.db.InTx(ctx, name, func(tx *sqlx.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sqlx.Tx
}

func (p pgTx) GetForUpdate(ctx context.Context, id int64) (*Member, error) {
	return getMember(ctx, p.tx, `SELECT `+memberColumns+` FROM membership WHERE member_id = $1 FOR UPDATE`, id)
}

func (p pgTx) SetRewards(ctx context.Context, id int64, totalSpent decimal.Decimal, giftGet int, eligible bool) error {
	_, err := p.tx.ExecContext(ctx,
		`UPDATE membership SET total_spent = $1, gift_get = $2, is_eligible_gift = $3 WHERE member_id = $4`,
		totalSpent, giftGet, eligible, id)
	return err
}

func getMember(ctx context.Context, q database.Querier, query string, id int64) (*Member, error) {
	var m Member
	err := q.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// AddSpend adds amount to a member's total spend and recomputes gift
// eligibility in the same statement. found is false when no member has id.
func AddSpend(ctx context.Context, q database.Querier, id int64, amount decimal.Decimal) (found bool, err error) {
	res, err := q.ExecContext(ctx, `
		UPDATE membership
		SET total_spent = total_spent + $1,
		    is_eligible_gift = (total_spent + $1) >= $2
		WHERE member_id = $3`,
		amount, GiftThreshold, id)
	if err != nil {
		return false, fmt.Errorf("add spend to member %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Name returns a member's name for receipts. ok is false for unknown ids.
func Name(ctx context.Context, q database.Querier, id int64) (name string, ok bool, err error) {
	err = q.GetContext(ctx, &name, `SELECT member_name FROM membership WHERE member_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get member name: %w", err)
	}
	return name, true, nil
}
