// internal/membership/domain.go
package membership

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bookstore/pkg/apperr"
)

// GiftThreshold is the accumulated spend that earns one gift. Redeeming a
// gift deducts the same amount.
var GiftThreshold = decimal.NewFromInt(500)

var (
	ErrMemberNotFound = apperr.New(apperr.ErrNotFound, "member not found")
	ErrPhoneNotFound  = apperr.New(apperr.ErrNotFound, "phone number not found")
	ErrPhoneTaken     = apperr.New(apperr.ErrConflict, "phone number is already registered")
	ErrNotEligible    = apperr.New(apperr.ErrConflict, "member is not eligible for a gift")
	ErrInvalidSort    = apperr.New(apperr.ErrInvalid, "invalid sorting parameters")
)

// Member is a store loyalty member.
type Member struct {
	ID           int64           `json:"member_ID" db:"member_id"`
	Name         string          `json:"member_name" db:"member_name"`
	Phone        string          `json:"phone_num" db:"phone_num"`
	TotalSpent   decimal.Decimal `json:"total_spent" db:"total_spent"`
	EligibleGift bool            `json:"is_eligible_gift" db:"is_eligible_gift"`
	GiftGet      int             `json:"gift_get" db:"gift_get"`
}

// Eligible reports whether a total spend qualifies for a gift.
func Eligible(total decimal.Decimal) bool {
	return total.GreaterThanOrEqual(GiftThreshold)
}

// sortColumns is the allow-list of sortable fields and the column each maps to.
var sortColumns = map[string]string{
	"member_ID":   "member_id",
	"member_name": "member_name",
	"total_spent": "total_spent",
	"gift_get":    "gift_get",
}

const maxPageSize = 100

// ListQuery selects one page of members.
type ListQuery struct {
	Page   int
	Limit  int
	SortBy string
	Desc   bool
	// Name, when set, restricts the page to members whose name contains it.
	Name string
}

// Column returns the SQL column for SortBy. Only allow-listed fields map.
func (q ListQuery) Column() (string, bool) {
	col, ok := sortColumns[q.SortBy]
	return col, ok
}

// Order is "ASC" or "DESC".
func (q ListQuery) Order() string {
	if q.Desc {
		return "DESC"
	}
	return "ASC"
}

// Offset is the number of rows before the page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseListQuery reads page, limit, sort_by and order from query parameters.
// Unknown sort fields or orders and non-positive or oversized paging values
// are rejected.
func ParseListQuery(v url.Values) (ListQuery, error) {
	q := ListQuery{Page: 1, Limit: 10, SortBy: "member_ID"}

	var err error
	if q.Page, err = positive(v, "page", 1); err != nil {
		return ListQuery{}, err
	}
	if q.Limit, err = positive(v, "limit", 10); err != nil {
		return ListQuery{}, err
	}
	if q.Limit > maxPageSize {
		return ListQuery{}, apperr.Invalidf("limit must not exceed %d", maxPageSize)
	}
	if q.Page > math.MaxInt32/q.Limit {
		return ListQuery{}, apperr.Invalidf("page is out of range")
	}

	if s := v.Get("sort_by"); s != "" {
		q.SortBy = s
	}
	if _, ok := q.Column(); !ok {
		return ListQuery{}, ErrInvalidSort
	}

	switch strings.ToLower(v.Get("order")) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return ListQuery{}, ErrInvalidSort
	}
	return q, nil
}

func positive(v url.Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Invalidf("%s must be a positive integer", name)
	}
	return n, nil
}

// Page is one page of a member listing.
type Page struct {
	CurrentPage  int      `json:"currentPage"`
	Limit        int      `json:"limit"`
	TotalPages   int      `json:"totalPages"`
	TotalRecords int      `json:"totalRecords"`
	SortBy       string   `json:"sortBy"`
	Order        string   `json:"order"`
	Results      []Member `json:"results"`
}

// NewMember is the body of an add-member request.
type NewMember struct {
	Name  string `json:"member_name"`
	Phone string `json:"phone_num"`
}

func (n NewMember) Validate() error {
	if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.Phone) == "" {
		return apperr.Invalidf("member_name and phone_num are required")
	}
	return nil
}

// MemberUpdate is the body of an edit-member request. Gift eligibility is
// derived from TotalSpent, never taken from the client.
type MemberUpdate struct {
	Name       string          `json:"member_name"`
	Phone      string          `json:"phone_num"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	GiftGet    int             `json:"gift_get"`
}

func (u MemberUpdate) Validate() error {
	if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Phone) == "" {
		return apperr.Invalidf("member_name and phone_num are required")
	}
	if u.TotalSpent.IsNegative() || u.GiftGet < 0 {
		return apperr.Invalidf("total_spent and gift_get must not be negative")
	}
	return nil
}
