// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// service implements the Service interface.
type service struct {
	store    Store
	logger   *slog.Logger
	redeemed metric.Int64Counter
}

// NewService creates a new membership service instance.
func NewService(store Store, logger *slog.Logger) Service {
	redeemed, _ := otel.Meter("bookstore/membership").Int64Counter(
		"membership.gifts_redeemed",
		metric.WithDescription("Gifts redeemed by members"),
	)
	return &service{
		store:    store,
		logger:   logger.With("component", "membership"),
		redeemed: redeemed,
	}
}

// List returns one page of members, optionally filtered by name. The sort
// field is checked against the allow-list before any query runs.
func (s *service) List(ctx context.Context, q ListQuery) (*Page, error) {
	column, ok := q.Column()
	if !ok {
		return nil, ErrInvalidSort
	}

	members, total, err := s.store.List(ctx, q, column)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if members == nil {
		members = []Member{}
	}

	return &Page{
		CurrentPage:  q.Page,
		Limit:        q.Limit,
		TotalPages:   (total + q.Limit - 1) / q.Limit,
		TotalRecords: total,
		SortBy:       q.SortBy,
		Order:        q.Order(),
		Results:      members,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Member, error) {
	return s.store.Get(ctx, id)
}

func (s *service) FindByPhone(ctx context.Context, phone string) (int64, error) {
	return s.store.IDByPhone(ctx, strings.TrimSpace(phone))
}

// Add registers a member with zero spend.
func (s *service) Add(ctx context.Context, m NewMember) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Phone = strings.TrimSpace(m.Phone)

	id, err := s.store.Insert(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("add member: %w", err)
	}
	s.logger.Info("member added", "member_id", id)
	return id, nil
}

// Update overwrites a member. Gift eligibility is recomputed from the new
// total spend.
func (s *service) Update(ctx context.Context, id int64, u MemberUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Phone = strings.TrimSpace(u.Phone)

	if err := s.store.Update(ctx, id, u, Eligible(u.TotalSpent)); err != nil {
		return fmt.Errorf("update member %d: %w", id, err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	return nil
}

// Redeem exchanges GiftThreshold of accumulated spend for one gift. The
// member row is locked for the read-modify-write.
func (s *service) Redeem(ctx context.Context, id int64) (*Member, error) {
	var updated Member
	err := s.store.WithinTx(ctx, "membership.redeem", func(tx TxStore) error {
		m, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !Eligible(m.TotalSpent) {
			return ErrNotEligible
		}

		m.TotalSpent = m.TotalSpent.Sub(GiftThreshold)
		m.GiftGet++
		m.EligibleGift = Eligible(m.TotalSpent)
		if err := tx.SetRewards(ctx, id, m.TotalSpent, m.GiftGet, m.EligibleGift); err != nil {
			return err
		}
		updated = *m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redeem gift for member %d: %w", id, err)
	}

	s.redeemed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("still_eligible", updated.EligibleGift)))
	s.logger.Info("gift redeemed", "member_id", id, "gift_get", updated.GiftGet)
	return &updated, nil
}
