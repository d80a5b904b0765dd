// internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bookstore/pkg/apperr"
	"bookstore/pkg/web"
)

type Handler struct {
	service   Service
	maxUpload int64
}

func NewHandler(service Service, maxUpload int64) *Handler {
	return &Handler{service: service, maxUpload: maxUpload}
}

// Routes mounts the catalog endpoints. guard wraps the admin mutations.
func (h *Handler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/books", h.handleListBooks)
	r.Get("/books/search", h.handleSearch)
	r.Get("/books/{isbn}", h.handleGetBook)
	r.Get("/genres", h.handleNames(Genres))
	r.Get("/types", h.handleNames(Types))
	r.Get("/publisher", h.handleListPublishers)
	r.Get("/publisher/names", h.handleNames(Publishers))
	r.Get("/publisher/{name}", h.handlePublisherByName)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/books", h.handleAddBook)
		r.Put("/books/{isbn}", h.handleUpdateBook)
		r.Delete("/books/{isbn}", h.handleDeleteBook)
		r.Delete("/genres/{name}", h.handleDeleteEntry(Genres))
		r.Delete("/types/{name}", h.handleDeleteEntry(Types))
		r.Post("/publisher", h.handleAddPublisher)
	})
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	v, err := web.Query(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	books, err := h.service.Search(r.Context(), v.Get("q"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	in, upload, cleanup, err := h.parseBookForm(w, r, "")
	defer cleanup()
	if err != nil {
		web.WriteError(w, err)
		return
	}

	book, err := h.service.AddBook(r.Context(), in, upload)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	in, upload, cleanup, err := h.parseBookForm(w, r, chi.URLParam(r, "isbn"))
	defer cleanup()
	if err != nil {
		web.WriteError(w, err)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), in, upload)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "isbn")); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

func (h *Handler) handleNames(dict Dictionary) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := h.service.Names(r.Context(), dict)
		if err != nil {
			web.WriteError(w, err)
			return
		}
		web.WriteJSON(w, http.StatusOK, names)
	}
}

func (h *Handler) handleDeleteEntry(dict Dictionary) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := h.service.DeleteEntry(r.Context(), dict, name); err != nil {
			web.WriteError(w, err)
			return
		}
		web.WriteJSON(w, http.StatusOK, map[string]string{
			"message": dict.String() + " deleted and related books updated",
		})
	}
}

func (h *Handler) handleListPublishers(w http.ResponseWriter, r *http.Request) {
	pubs, err := h.service.ListPublishers(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, pubs)
}

func (h *Handler) handlePublisherByName(w http.ResponseWriter, r *http.Request) {
	pub, err := h.service.PublisherByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "publisher_ID": pub.ID})
}

func (h *Handler) handleAddPublisher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"publisher_name"`
	}
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}

	pub, err := h.service.AddPublisher(r.Context(), req.Name)
	var exists *PublisherExistsError
	if errors.As(err, &exists) {
		web.WriteJSON(w, http.StatusConflict, map[string]any{
			"error":       exists.Error(),
			"publisherId": exists.ID,
		})
		return
	}
	if err != nil {
		web.WriteError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Publisher added successfully",
		"data":    pub,
	})
}

// parseBookForm reads the multipart book form. For updates isbn comes from
// the path; for creates it is a form field. The returned cleanup releases
// the multipart temp files and must always be called.
func (h *Handler) parseBookForm(w http.ResponseWriter, r *http.Request, isbn string) (BookInput, *Upload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return BookInput{}, nil, noop, apperr.Invalidf("invalid multipart form: %v", err)
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	if isbn == "" {
		isbn = field("isbn")
	}

	in := BookInput{
		ISBN:      strings.TrimSpace(isbn),
		Title:     field("title"),
		Genre:     field("genre"),
		Type:      field("type"),
		Publisher: field("publisher"),
		Author:    field("author"),
		Image:     field("existingImage"),
	}

	var missing []string
	price, stock := field("price"), field("stock")
	if price == "" {
		missing = append(missing, "price")
	}
	if stock == "" {
		missing = append(missing, "stock")
	}
	if len(missing) > 0 {
		return BookInput{}, nil, cleanup, apperr.Invalidf("missing required fields: %s", strings.Join(missing, ", "))
	}

	var err error
	if in.Price, err = decimal.NewFromString(price); err != nil {
		return BookInput{}, nil, cleanup, apperr.Invalidf("price must be a number")
	}
	if in.Stock, err = strconv.Atoi(stock); err != nil {
		return BookInput{}, nil, cleanup, apperr.Invalidf("stock must be an integer")
	}
	if sales := field("sales"); sales != "" {
		if in.Sales, err = strconv.Atoi(sales); err != nil {
			return BookInput{}, nil, cleanup, apperr.Invalidf("sales must be an integer")
		}
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, cleanup, nil
	}
	if err != nil {
		return BookInput{}, nil, cleanup, apperr.Invalidf("invalid image: %v", err)
	}

	upload := &Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return in, upload, func() {
		file.Close()
		cleanup()
	}, nil
}
