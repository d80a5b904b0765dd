package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"bookstore/internal/notify"
	"bookstore/pkg/apperr"
)

// memStore is an in-memory Store. WithinTx snapshots all state and restores
// it when fn fails, so tests can observe rollback.
type memStore struct {
	mu         sync.Mutex
	books      map[string]BookRow
	dicts      map[Dictionary]map[string]int64
	nextID     int64
	referenced map[string]bool
	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		books: map[string]BookRow{},
		dicts: map[Dictionary]map[string]int64{
			Genres: {}, Types: {}, Publishers: {},
		},
		referenced: map[string]bool{},
	}
}

func (m *memStore) snapshot() func() {
	books := make(map[string]BookRow, len(m.books))
	for k, v := range m.books {
		books[k] = v
	}
	dicts := make(map[Dictionary]map[string]int64, len(m.dicts))
	for d, entries := range m.dicts {
		cp := make(map[string]int64, len(entries))
		for k, v := range entries {
			cp[k] = v
		}
		dicts[d] = cp
	}
	nextID := m.nextID
	return func() {
		m.books, m.dicts, m.nextID = books, dicts, nextID
	}
}

func (m *memStore) nameOf(d Dictionary, id *int64) *string {
	if id == nil {
		return nil
	}
	for name, v := range m.dicts[d] {
		if v == *id {
			n := name
			return &n
		}
	}
	return nil
}

func (m *memStore) view(row BookRow) Book {
	b := Book{
		ISBN:   row.ISBN,
		Title:  row.Title,
		Price:  row.Price,
		Stock:  row.Stock,
		Sales:  row.Sales,
		Author: row.Author,
		Genre:  m.nameOf(Genres, row.GenreID),
		Type:   m.nameOf(Types, row.TypeID),
		Image:  row.Image,
	}
	if p := m.nameOf(Publishers, &row.PublisherID); p != nil {
		b.Publisher = *p
	}
	return b
}

func (m *memStore) ListBooks(ctx context.Context) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Book{}
	for _, row := range m.books {
		out = append(out, m.view(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) GetBook(ctx context.Context, isbn string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getBook(isbn)
}

func (m *memStore) getBook(isbn string) (*Book, error) {
	row, ok := m.books[isbn]
	if !ok {
		return nil, ErrBookNotFound
	}
	b := m.view(row)
	return &b, nil
}

func (m *memStore) Search(ctx context.Context, query string, limit int) ([]Book, error) {
	all, _ := m.ListBooks(ctx)
	q := strings.ToLower(query)
	out := []Book{}
	for _, b := range all {
		fields := []string{b.Title, b.Author, b.ISBN}
		if b.Genre != nil {
			fields = append(fields, *b.Genre)
		}
		if b.Type != nil {
			fields = append(fields, *b.Type)
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, b)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) Names(ctx context.Context, dict Dictionary) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for name := range m.dicts[dict] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ListPublishers(ctx context.Context) ([]Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Publisher{}
	for name, id := range m.dicts[Publishers] {
		out = append(out, Publisher{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) PublisherByName(ctx context.Context, name string) (*Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.dicts[Publishers][name]
	if !ok {
		return nil, ErrPublisherNotFound
	}
	return &Publisher{ID: id, Name: name}, nil
}

func (m *memStore) InsertPublisher(ctx context.Context, name string) (*Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.dicts[Publishers][name] = m.nextID
	return &Publisher{ID: m.nextID, Name: name}, nil
}

func (m *memStore) WithinTx(ctx context.Context, name string, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	restore := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		restore()
		return err
	}
	return nil
}

type memTx struct {
	m *memStore
}

func (t *memTx) LookupOrCreate(ctx context.Context, dict Dictionary, name string) (int64, error) {
	if id, ok := t.m.dicts[dict][name]; ok {
		return id, nil
	}
	t.m.nextID++
	t.m.dicts[dict][name] = t.m.nextID
	return t.m.nextID, nil
}

func (t *memTx) EntryID(ctx context.Context, dict Dictionary, name string) (int64, error) {
	id, ok := t.m.dicts[dict][name]
	if !ok {
		return 0, apperr.NotFoundf("%s %q not found", dict, name)
	}
	return id, nil
}

func (t *memTx) NullifyReferences(ctx context.Context, dict Dictionary, id int64) error {
	for isbn, row := range t.m.books {
		switch {
		case dict == Genres && row.GenreID != nil && *row.GenreID == id:
			row.GenreID = nil
		case dict == Types && row.TypeID != nil && *row.TypeID == id:
			row.TypeID = nil
		default:
			continue
		}
		t.m.books[isbn] = row
	}
	return nil
}

func (t *memTx) CountReferences(ctx context.Context, dict Dictionary, id int64) (int, error) {
	n := 0
	for _, row := range t.m.books {
		switch dict {
		case Genres:
			if row.GenreID != nil && *row.GenreID == id {
				n++
			}
		case Types:
			if row.TypeID != nil && *row.TypeID == id {
				n++
			}
		case Publishers:
			if row.PublisherID == id {
				n++
			}
		}
	}
	return n, nil
}

func (t *memTx) DeleteEntry(ctx context.Context, dict Dictionary, id int64) error {
	for name, v := range t.m.dicts[dict] {
		if v == id {
			delete(t.m.dicts[dict], name)
		}
	}
	return nil
}

func (t *memTx) BookSummary(ctx context.Context, isbn string) (string, string, error) {
	row, ok := t.m.books[isbn]
	if !ok {
		return "", "", ErrBookNotFound
	}
	return row.Title, row.Image, nil
}

func (t *memTx) InsertBook(ctx context.Context, row BookRow) error {
	if t.m.failInsert != nil {
		return t.m.failInsert
	}
	if _, ok := t.m.books[row.ISBN]; ok {
		return ErrBookExists
	}
	t.m.books[row.ISBN] = row
	return nil
}

func (t *memTx) UpdateBook(ctx context.Context, row BookRow) error {
	if _, ok := t.m.books[row.ISBN]; !ok {
		return ErrBookNotFound
	}
	t.m.books[row.ISBN] = row
	return nil
}

func (t *memTx) DeleteBook(ctx context.Context, isbn string) error {
	if t.m.referenced[isbn] {
		return ErrBookReferenced
	}
	delete(t.m.books, isbn)
	return nil
}

func (t *memTx) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return t.m.getBook(isbn)
}

// recorder captures published notifications.
type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Publish(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.got {
		out = append(out, n.Title)
	}
	return out
}

var errInjected = errors.New("injected failure")
