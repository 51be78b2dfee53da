package service

import (
	"context"
	"testing"

	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/store/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	store   *memory.Store
	books   *Books
	reviews *Reviews
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	return newFixtureWithStore(st, st)
}

// newFixtureWithStore wires the services to svcStore while keeping direct access to mem.
func newFixtureWithStore(mem *memory.Store, svcStore Store) *fixture {
	log := logger.Nop()
	return &fixture{
		store:   mem,
		books:   NewBooks(svcStore, nil, log),
		reviews: NewReviews(svcStore, NewRatingAggregator(svcStore), log),
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func (f *fixture) createBook(t *testing.T, title string) *models.Book {
	t.Helper()
	book, err := f.books.Create(context.Background(), BookInput{Title: title, Author: "Someone"})
	require.NoError(t, err)
	return book
}

func (f *fixture) average(t *testing.T, bookID primitive.ObjectID) float64 {
	t.Helper()
	book, err := f.store.BookByID(context.Background(), bookID)
	require.NoError(t, err)
	return book.AverageRating
}

func (f *fixture) reviewCount(t *testing.T, bookID primitive.ObjectID) int {
	t.Helper()
	reviews, err := f.store.ReviewsByBook(context.Background(), bookID)
	require.NoError(t, err)
	return len(reviews)
}
