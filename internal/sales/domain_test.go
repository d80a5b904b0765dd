package sales

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"bookstore/pkg/apperr"
)

func TestDecodeMetadata(t *testing.T) {
	items, member, err := DecodeMetadata(`[{"book_ISBN":"A","quantity":2,"price":12.5},{"book_ISBN":"B","quantity":1}]`, "42")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "12.5", items[0].Price.String())
	assert.Nil(t, items[1].Price)
	require.NotNil(t, member)
	assert.Equal(t, int64(42), *member)

	_, member, err = DecodeMetadata(`[{"book_ISBN":"A","quantity":1}]`, "")
	require.NoError(t, err)
	assert.Nil(t, member)

	_, member, err = DecodeMetadata(`[{"book_ISBN":"A","quantity":1}]`, "null")
	require.NoError(t, err)
	assert.Nil(t, member)

	for _, tc := range []struct{ items, member string }{
		{`not json`, ""},
		{`[]`, ""},
		{`[{"book_ISBN":"A","quantity":1}]`, "abc"},
		{`[{"book_ISBN":"A","quantity":1}]`, "-3"},
	} {
		_, _, err := DecodeMetadata(tc.items, tc.member)
		assert.ErrorIs(t, err, apperr.ErrInvalid, tc.items+" "+tc.member)
	}
}

func TestParseYear(t *testing.T) {
	year, err := ParseYear("2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)

	for _, raw := range []string{"", "25", "20255", "20x5", "-202", "２０２５"} {
		_, err := ParseYear(raw)
		assert.ErrorIs(t, err, ErrInvalidYear, raw)
	}
}

func TestYearlyReportAlwaysHasTwelveMonths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		titles := []string{"Alpha", "Beta", "Gamma"}
		rows := rapid.SliceOf(rapid.Custom(func(t *rapid.T) MonthRow {
			title := rapid.SampledFrom(titles).Draw(t, "title")
			return MonthRow{
				Title:     title,
				UnitPrice: decimal.NewFromInt(int64(len(title))),
				Month:     rapid.IntRange(1, 12).Draw(t, "month"),
				UnitsSold: rapid.IntRange(1, 20).Draw(t, "units"),
				Total:     decimal.NewFromInt(rapid.Int64Range(1, 500).Draw(t, "total")),
			}
		})).Draw(t, "rows")

		wantUnits := map[string]int{}
		wantTotal := map[string]decimal.Decimal{}
		for _, r := range rows {
			wantUnits[r.Title] += r.UnitsSold
			wantTotal[r.Title] = wantTotal[r.Title].Add(r.Total)
		}

		report := BuildYearlyReport(rows)
		if len(report) != len(wantUnits) {
			t.Fatalf("report has %d titles, want %d", len(report), len(wantUnits))
		}
		for title, months := range report {
			if len(months) != 12 {
				t.Fatalf("%s has %d months", title, len(months))
			}
			units, total := 0, decimal.Zero
			for _, m := range months {
				units += m.UnitsSold
				total = total.Add(m.Total)
				if !m.UnitPrice.Equal(decimal.NewFromInt(int64(len(title)))) {
					t.Fatalf("%s month carries price %s", title, m.UnitPrice)
				}
			}
			if units != wantUnits[title] || !total.Equal(wantTotal[title]) {
				t.Fatalf("%s: units %d total %s, want %d %s", title, units, total, wantUnits[title], wantTotal[title])
			}
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	store := newMemStore()
	store.addBook("A", "Alpha", "10.00", 5)
	store.state.records = append(store.state.records, SaleRecord{
		TransactionID: "pi_1", ISBN: "A", Quantity: 1, TotalPrice: decimal.NewFromInt(10), Date: "2025-02-01",
	})

	r := chi.NewRouter()
	NewHandler(newTestService(store, march)).Routes(r, func(h http.Handler) http.Handler { return h })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/sales/years")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[2025]`, rec.Body.String())

	rec = get("/sales/25")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get("/sales/2025")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Alpha"`)

	rec = get("/receipt/pi_1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"discount":"NONE"`))
	assert.Contains(t, rec.Body.String(), `"member":null`)

	rec = get("/receipt/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Transaction not found"}`, rec.Body.String())
}

func TestReportRoutesAreGuarded(t *testing.T) {
	r := chi.NewRouter()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
	}
	NewHandler(newTestService(newMemStore(), march)).Routes(r, deny)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/2025", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
