package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BooksHandler struct {
	responder
	Books         *service.Books
	Reviews       *service.Reviews
	Lookup        *service.MetadataLookup
	MaxCoverBytes int64
}

// objectIDParam parses the {id} URL parameter. A malformed id can never match a document, so
// it is answered with notFound.
func objectIDParam(w http.ResponseWriter, r *http.Request, notFound string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, notFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.Books.List(r.Context())
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	book, err := h.Books.Get(r.Context(), id)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.BookInput
	if !decodeJSON(w, r, &in) {
		return
	}
	book, err := h.Books.Create(r.Context(), in)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	var in service.BookInput
	if !decodeJSON(w, r, &in) {
		return
	}
	book, err := h.Books.Update(r.Context(), id, in)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	if err := h.Books.Delete(r.Context(), id); err != nil {
		h.error(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Book and associated reviews deleted successfully")
}

func (h *BooksHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	reviews, err := h.Books.ListReviews(r.Context(), id)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *BooksHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	var in service.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	review, err := h.Reviews.Create(r.Context(), id, userID, in)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// LookupISBN suggests book fields for an ISBN. Nothing is stored.
func (h *BooksHandler) LookupISBN(w http.ResponseWriter, r *http.Request) {
	in, err := h.Lookup.ByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// PutCover replaces the book's cover with the image in multipart field "file".
func (h *BooksHandler) PutCover(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	if h.MaxCoverBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxCoverBytes)
	}
	if err := r.ParseMultipartForm(h.MaxCoverBytes); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeErrorMessage(w, http.StatusBadRequest, "cover must be an image")
		return
	}
	book, err := h.Books.SetCover(r.Context(), id, header.Filename, file, contentType)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "book not found")
	if !ok {
		return
	}
	body, contentType, err := h.Books.Cover(r.Context(), id)
	if err != nil {
		h.error(w, r, err)
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	io.Copy(w, body)
}
