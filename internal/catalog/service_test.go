package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/pkg/apperr"
	"bookstore/pkg/logging"
)

type fixture struct {
	svc    Service
	store  *memStore
	images *ImageStore
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	images, err := NewImageStore(t.TempDir(), 5<<20)
	require.NoError(t, err)
	store := newMemStore()
	events := &recorder{}
	return &fixture{
		svc:    NewService(store, images, events, logging.Discard()),
		store:  store,
		images: images,
		events: events,
	}
}

func bookInput(isbn, title, genre string) BookInput {
	return BookInput{
		ISBN:      isbn,
		Title:     title,
		Price:     decimal.RequireFromString("25.90"),
		Stock:     10,
		Genre:     genre,
		Type:      "Paperback",
		Publisher: "Penguin",
		Author:    "Someone",
	}
}

func pngUpload(name string) *Upload {
	body := "\x89PNG\r\n\x1a\nfake"
	return &Upload{Filename: name, ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLookupOrCreateReusesEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), nil)
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bookInput("222", "Second", "Mystery"), nil)
	require.NoError(t, err)

	genres, err := f.svc.Names(ctx, Genres)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mystery"}, genres)

	a, _ := f.svc.GetBook(ctx, "111")
	b, _ := f.svc.GetBook(ctx, "222")
	require.NotNil(t, a.Genre)
	require.NotNil(t, b.Genre)
	assert.Equal(t, "Mystery", *a.Genre)
	assert.Equal(t, f.store.books["111"].GenreID, f.store.books["222"].GenreID)
	assert.Equal(t, []string{"New Book Added!", "New Book Added!"}, f.events.titles())
}

func TestDeletingGenreNullsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), nil)
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bookInput("222", "Second", "Romance"), nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEntry(ctx, Genres, "Mystery"))

	a, err := f.svc.GetBook(ctx, "111")
	require.NoError(t, err)
	assert.Nil(t, a.Genre)
	b, err := f.svc.GetBook(ctx, "222")
	require.NoError(t, err)
	require.NotNil(t, b.Genre)
	assert.Equal(t, "Romance", *b.Genre)

	genres, _ := f.svc.Names(ctx, Genres)
	assert.Equal(t, []string{"Romance"}, genres)

	err = f.svc.DeleteEntry(ctx, Types, "Hardcover")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeletingTypeNullsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteEntry(ctx, Types, "Paperback"))

	a, _ := f.svc.GetBook(ctx, "111")
	assert.Nil(t, a.Type)
	require.NotNil(t, a.Genre)
}

func TestPublisherDeletionIsRestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, Restrict, Publishers.Policy())
	assert.Equal(t, NullifyReferences, Genres.Policy())

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), nil)
	require.NoError(t, err)

	err = f.svc.DeleteEntry(ctx, Publishers, "Penguin")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	pubs, _ := f.svc.ListPublishers(ctx)
	require.Len(t, pubs, 1)
}

func TestAddBookDuplicateRemovesUploadedImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), pngUpload("cover.png"))
	require.NoError(t, err)
	require.Len(t, filesIn(t, f.images.Dir()), 1)

	_, err = f.svc.AddBook(ctx, bookInput("111", "Again", "Mystery"), pngUpload("other.png"))
	assert.ErrorIs(t, err, ErrBookExists)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, filesIn(t, f.images.Dir()), 1)
}

func TestAddBookRollsBackDictionaryEntriesOnFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failInsert = errInjected

	_, err := f.svc.AddBook(context.Background(), bookInput("111", "First", "Mystery"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))

	genres, _ := f.svc.Names(context.Background(), Genres)
	assert.Empty(t, genres)
	pubs, _ := f.svc.ListPublishers(context.Background())
	assert.Empty(t, pubs)
	assert.Empty(t, f.events.titles())
}

func TestAddBookRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	in := bookInput("111", "", "Mystery")
	_, err := f.svc.AddBook(context.Background(), in, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Contains(t, err.Error(), "title")

	in = bookInput("111", "T", "Mystery")
	in.Price = decimal.NewFromInt(-1)
	_, err = f.svc.AddBook(context.Background(), in, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.svc.AddBook(context.Background(), bookInput("111", "T", "Mystery"), &Upload{
		Filename: "cover.gif", ContentType: "image/gif", Body: strings.NewReader("GIF89a"),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateBookReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), pngUpload("old.png"))
	require.NoError(t, err)
	oldFile := filepath.Base(created.Image)

	in := bookInput("111", "First (2nd ed.)", "Thriller")
	updated, err := f.svc.UpdateBook(ctx, in, pngUpload("new.png"))
	require.NoError(t, err)

	assert.Equal(t, "First (2nd ed.)", updated.Title)
	require.NotNil(t, updated.Genre)
	assert.Equal(t, "Thriller", *updated.Genre)
	assert.NotEqual(t, created.Image, updated.Image)

	files := filesIn(t, f.images.Dir())
	assert.Equal(t, []string{filepath.Base(updated.Image)}, files)
	assert.NotContains(t, files, oldFile)
}

func TestUpdateBookKeepsExistingImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), pngUpload("old.png"))
	require.NoError(t, err)

	in := bookInput("111", "First", "Mystery")
	in.Image = created.Image
	updated, err := f.svc.UpdateBook(ctx, in, nil)
	require.NoError(t, err)
	assert.Equal(t, created.Image, updated.Image)
	assert.Len(t, filesIn(t, f.images.Dir()), 1)
}

func TestUpdateMissingBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateBook(context.Background(), bookInput("404", "Nope", "Mystery"), pngUpload("x.png"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, filesIn(t, f.images.Dir()))
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBook(ctx, bookInput("111", "First", "Mystery"), pngUpload("cover.png"))
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bookInput("222", "Sold", "Mystery"), nil)
	require.NoError(t, err)
	f.store.referenced["222"] = true

	require.NoError(t, f.svc.DeleteBook(ctx, "111"))
	assert.Empty(t, filesIn(t, f.images.Dir()))
	assert.Contains(t, f.events.titles(), "Book Deleted!")

	_, err = f.svc.GetBook(ctx, "111")
	assert.ErrorIs(t, err, ErrBookNotFound)

	assert.ErrorIs(t, f.svc.DeleteBook(ctx, "111"), apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteBook(ctx, "222"), apperr.ErrConflict)
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := bookInput("9780441013593", "Dune", "Science Fiction")
	in.Author = "Frank Herbert"
	_, err := f.svc.AddBook(ctx, in, nil)
	require.NoError(t, err)
	_, err = f.svc.AddBook(ctx, bookInput("111", "Emma", "Classic"), nil)
	require.NoError(t, err)

	for _, q := range []string{"dune", "HERBERT", "0441", "science"} {
		got, err := f.svc.Search(ctx, q)
		require.NoError(t, err)
		require.Len(t, got, 1, q)
		assert.Equal(t, "Dune", got[0].Title)
	}

	all, err := f.svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddPublisher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddPublisher(ctx, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	p, err := f.svc.AddPublisher(ctx, "  Penguin ")
	require.NoError(t, err)
	assert.Equal(t, "Penguin", p.Name)

	_, err = f.svc.AddPublisher(ctx, "Penguin")
	var exists *PublisherExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, p.ID, exists.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.svc.PublisherByName(ctx, "Penguin")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.svc.PublisherByName(ctx, "Nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
