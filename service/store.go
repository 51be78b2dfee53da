package service

import (
	"context"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookStore is the book half of the document store. Lookups by id return
// store.ErrNotFound when nothing matches; unique index violations return
// store.ErrDuplicateKey.
type BookStore interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	AllBooks(ctx context.Context) ([]models.Book, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	SetAverageRating(ctx context.Context, id primitive.ObjectID, avg float64) error
	SetBookCover(ctx context.Context, id primitive.ObjectID, key string) error
}

type ReviewStore interface {
	InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error)
	ReviewByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ReviewsByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Review, error)
	UpdateReview(ctx context.Context, id primitive.ObjectID, rating int, comment string) error
	DeleteReview(ctx context.Context, id primitive.ObjectID) error
	DeleteReviewsByBook(ctx context.Context, bookID primitive.ObjectID) (int64, error)
}

type UserStore interface {
	UpsertGoogleUser(ctx context.Context, user *models.User) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// Store is everything the services need from persistence. Both *store.DB and
// *memory.Store satisfy it.
type Store interface {
	BookStore
	ReviewStore
	UserStore
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}
