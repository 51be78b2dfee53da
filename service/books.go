package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrCoversDisabled is returned by cover operations when no object storage is configured.
var ErrCoversDisabled = errors.New("cover storage not configured")

// CoverStorage stores cover images. *S3Service implements it.
type CoverStorage interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Books is the catalog: CRUD over books, review listing and cover images. Deleting a book
// also deletes its reviews.
type Books struct {
	store  Store
	covers CoverStorage
	log    *logger.Logger
	now    func() time.Time
}

// NewBooks returns the catalog service. covers may be nil.
func NewBooks(st Store, covers CoverStorage, log *logger.Logger) *Books {
	return &Books{
		store:  st,
		covers: covers,
		log:    log.With("service", "Books"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Books) List(ctx context.Context) ([]models.Book, error) {
	books, err := s.store.AllBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	for i := range books {
		setCoverURL(&books[i])
	}
	return books, nil
}

func (s *Books) Get(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	book, err := s.store.BookByID(ctx, id)
	if err != nil {
		return nil, bookLookupErr(id, err)
	}
	setCoverURL(book)
	return book, nil
}

func (s *Books) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	book := &models.Book{
		Title:     in.Title,
		Author:    in.Author,
		CreatedAt: s.now(),
	}
	if in.Genre != nil {
		book.Genre = *in.Genre
	}
	if in.PublishedYear != nil {
		book.PublishedYear = *in.PublishedYear
	}
	if in.ISBN != nil {
		book.ISBN = *in.ISBN
	}
	if in.Summary != nil {
		book.Summary = *in.Summary
	}
	id, err := s.store.InsertBook(ctx, book)
	if err != nil {
		return nil, writeBookErr(err)
	}
	book.ID = id
	return book, nil
}

// Update rewrites title and author and any optional field present in the input. An ISBN sent
// as an empty string is removed.
func (s *Books) Update(ctx context.Context, id primitive.ObjectID, in BookInput) (*models.Book, error) {
	clearISBN := in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	patch := models.BookPatch{
		Title:         in.Title,
		Author:        in.Author,
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
		ISBN:          in.ISBN,
		Summary:       in.Summary,
	}
	if clearISBN {
		empty := ""
		patch.ISBN = &empty
	}
	book, err := s.store.UpdateBook(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: book %s", ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, writeBookErr(err)
	}
	setCoverURL(book)
	return book, nil
}

// Delete removes the book, then every review that references it, then its cover object.
// A failure in the cover step is logged and otherwise ignored. Deleting a book that is
// already gone still clears its reviews before answering NotFound, so a retry finishes a
// cascade that failed halfway.
func (s *Books) Delete(ctx context.Context, id primitive.ObjectID) error {
	book, err := s.store.DeleteBook(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if n, delErr := s.store.DeleteReviewsByBook(ctx, id); delErr != nil {
			s.log.Error("leftover review delete failed", "bookId", id.Hex(), "error", delErr)
		} else if n > 0 {
			s.log.Warn("removed reviews left behind by an earlier delete", "bookId", id.Hex(), "reviewsDeleted", n)
		}
		return fmt.Errorf("%w: book %s", ErrNotFound, id.Hex())
	}
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}
	n, err := s.store.DeleteReviewsByBook(ctx, id)
	if err != nil {
		s.log.Error("cascade review delete failed", "bookId", id.Hex(), "error", err)
		return fmt.Errorf("delete reviews of book %s: %w", id.Hex(), err)
	}
	s.log.Debug("book deleted", "bookId", id.Hex(), "reviewsDeleted", n)
	if book.CoverKey != "" && s.covers != nil {
		if err := s.covers.Delete(ctx, book.CoverKey); err != nil {
			s.log.Warn("cover delete failed", "bookId", id.Hex(), "key", book.CoverKey, "error", err)
		}
	}
	return nil
}

// ListReviews returns the book's reviews with each author's display name.
func (s *Books) ListReviews(ctx context.Context, bookID primitive.ObjectID) ([]models.ReviewWithUser, error) {
	if _, err := s.store.BookByID(ctx, bookID); err != nil {
		return nil, bookLookupErr(bookID, err)
	}
	reviews, err := s.store.ReviewsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, r := range reviews {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load review authors: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	out := make([]models.ReviewWithUser, len(reviews))
	for i, r := range reviews {
		out[i] = models.ReviewWithUser{Review: r}
		if u, ok := byID[r.UserID]; ok {
			out[i].User = u.Summary()
		}
	}
	return out, nil
}

// SetCover uploads a new cover image and deletes the one it replaces.
func (s *Books) SetCover(ctx context.Context, id primitive.ObjectID, filename string, body io.Reader, contentType string) (*models.Book, error) {
	if s.covers == nil {
		return nil, ErrCoversDisabled
	}
	book, err := s.store.BookByID(ctx, id)
	if err != nil {
		return nil, bookLookupErr(id, err)
	}
	key, err := s.covers.Upload(ctx, "covers/"+id.Hex()+"/", filename, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload cover: %w", err)
	}
	if err := s.store.SetBookCover(ctx, id, key); err != nil {
		_ = s.covers.Delete(ctx, key)
		return nil, bookLookupErr(id, err)
	}
	if book.CoverKey != "" {
		if err := s.covers.Delete(ctx, book.CoverKey); err != nil {
			s.log.Warn("old cover delete failed", "bookId", id.Hex(), "key", book.CoverKey, "error", err)
		}
	}
	book.CoverKey = key
	setCoverURL(book)
	return book, nil
}

// Cover opens the stored cover image. The caller closes the reader.
func (s *Books) Cover(ctx context.Context, id primitive.ObjectID) (io.ReadCloser, string, error) {
	if s.covers == nil {
		return nil, "", ErrCoversDisabled
	}
	book, err := s.store.BookByID(ctx, id)
	if err != nil {
		return nil, "", bookLookupErr(id, err)
	}
	if book.CoverKey == "" {
		return nil, "", fmt.Errorf("%w: book %s has no cover", ErrNotFound, id.Hex())
	}
	body, contentType, err := s.covers.GetObject(ctx, book.CoverKey)
	if err != nil {
		return nil, "", fmt.Errorf("load cover: %w", err)
	}
	return body, contentType, nil
}

func setCoverURL(book *models.Book) {
	if book.CoverKey != "" {
		book.CoverURL = "/books/" + book.ID.Hex() + "/cover"
	}
}

func writeBookErr(err error) error {
	if errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("%w: a book with this ISBN already exists", ErrConflict)
	}
	return fmt.Errorf("write book: %w", err)
}
