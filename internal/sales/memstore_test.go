package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bookstore/internal/catalog"
)

var errInjected = errors.New("injected failure")

type memBook struct {
	title string
	price decimal.Decimal
	stock int
	sales int
}

type memState struct {
	books     map[string]memBook
	spent     map[int64]decimal.Decimal
	names     map[int64]string
	records   []SaleRecord
	processed map[string]decimal.Decimal
}

func (s memState) clone() memState {
	c := memState{
		books:     make(map[string]memBook, len(s.books)),
		spent:     make(map[int64]decimal.Decimal, len(s.spent)),
		names:     s.names,
		records:   append([]SaleRecord(nil), s.records...),
		processed: make(map[string]decimal.Decimal, len(s.processed)),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.spent {
		c.spent[k] = v
	}
	for k, v := range s.processed {
		c.processed[k] = v
	}
	return c
}

// memStore is an in-memory Store. failOnSale makes the n-th ApplySale call
// (1-based, counted across the store's lifetime) fail.
type memStore struct {
	mu         sync.Mutex
	state      memState
	saleCalls  int
	failOnSale int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		books:     map[string]memBook{},
		spent:     map[int64]decimal.Decimal{},
		names:     map[int64]string{},
		processed: map[string]decimal.Decimal{},
	}}
}

func (m *memStore) addBook(isbn, title, price string, stock int) {
	m.state.books[isbn] = memBook{title: title, price: decimal.RequireFromString(price), stock: stock}
}

func (m *memStore) addMember(id int64, name string) {
	m.state.spent[id] = decimal.Zero
	m.state.names[id] = name
}

func (m *memStore) WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.state.clone()
	if err := fn(memTx{m}); err != nil {
		m.state = saved
		return err
	}
	return nil
}

func (m *memStore) ReceiptLines(ctx context.Context, transactionID string) ([]ReceiptLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []ReceiptLine
	for _, r := range m.state.records {
		if r.TransactionID != transactionID {
			continue
		}
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		line := ReceiptLine{
			Name:       m.state.books[r.ISBN].title,
			Quantity:   r.Quantity,
			TotalPrice: r.TotalPrice,
			Date:       date,
			MemberID:   r.MemberID,
		}
		if r.MemberID != nil {
			if name, ok := m.state.names[*r.MemberID]; ok {
				line.MemberName = &name
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *memStore) Years(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int]bool{}
	var years []int
	for _, r := range m.state.records {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		if !seen[d.Year()] {
			seen[d.Year()] = true
			years = append(years, d.Year())
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (m *memStore) MonthRows(ctx context.Context, year int) ([]MonthRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []MonthRow
	for _, r := range m.state.records {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		if d.Year() != year {
			continue
		}
		b := m.state.books[r.ISBN]
		rows = append(rows, MonthRow{
			Title:     b.title,
			UnitPrice: b.price,
			Month:     int(d.Month()),
			UnitsSold: r.Quantity,
			Total:     r.TotalPrice,
		})
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

type memTx struct{ m *memStore }

func (t memTx) ClaimPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	if _, ok := t.m.state.processed[transactionID]; ok {
		return false, nil
	}
	t.m.state.processed[transactionID] = amount
	return true, nil
}

func (t memTx) UnitPrice(ctx context.Context, isbn string) (decimal.Decimal, bool, error) {
	b, ok := t.m.state.books[isbn]
	if !ok {
		return decimal.Zero, false, nil
	}
	return b.price, true, nil
}

func (t memTx) InsertSale(ctx context.Context, rec SaleRecord) error {
	if _, ok := t.m.state.books[rec.ISBN]; !ok {
		return catalog.ErrBookNotFound
	}
	t.m.state.records = append(t.m.state.records, rec)
	return nil
}

func (t memTx) AddSpend(ctx context.Context, memberID int64, amount decimal.Decimal) (bool, error) {
	spent, ok := t.m.state.spent[memberID]
	if !ok {
		return false, nil
	}
	t.m.state.spent[memberID] = spent.Add(amount)
	return true, nil
}

func (t memTx) ApplySale(ctx context.Context, isbn string, qty int) error {
	t.m.saleCalls++
	if t.m.failOnSale > 0 && t.m.saleCalls == t.m.failOnSale {
		return errInjected
	}
	b, ok := t.m.state.books[isbn]
	if !ok {
		return catalog.ErrBookNotFound
	}
	b.stock -= qty
	b.sales += qty
	t.m.state.books[isbn] = b
	return nil
}
