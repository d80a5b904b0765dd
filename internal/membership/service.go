// internal/membership/service.go
package membership

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the membership service.
type Service interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
	Get(ctx context.Context, id int64) (*Member, error)
	FindByPhone(ctx context.Context, phone string) (int64, error)
	Add(ctx context.Context, m NewMember) (int64, error)
	Update(ctx context.Context, id int64, u MemberUpdate) error
	Delete(ctx context.Context, id int64) error
	Redeem(ctx context.Context, id int64) (*Member, error)
}

// Store is the persistence the membership service runs on.
type Store interface {
	// List returns one page of members ordered by column, which the caller
	// has already checked against the sort allow-list.
	List(ctx context.Context, q ListQuery, column string) ([]Member, int, error)
	Get(ctx context.Context, id int64) (*Member, error)
	IDByPhone(ctx context.Context, phone string) (int64, error)
	Insert(ctx context.Context, m NewMember) (int64, error)
	Update(ctx context.Context, id int64, u MemberUpdate, eligible bool) error
	Delete(ctx context.Context, id int64) error

	WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error
}

// TxStore is the transactional side used by gift redemption.
type TxStore interface {
	// GetForUpdate loads a member and locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Member, error)
	SetRewards(ctx context.Context, id int64, totalSpent decimal.Decimal, giftGet int, eligible bool) error
}
