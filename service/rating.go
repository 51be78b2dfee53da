package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ratingStore interface {
	ReviewsByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Review, error)
	SetAverageRating(ctx context.Context, id primitive.ObjectID, avg float64) error
}

// RatingAggregator keeps Book.AverageRating equal to the mean of the book's reviews.
// Recomputations of the same book never overlap, so once concurrent review writes settle
// the last recomputation has seen all of them.
type RatingAggregator struct {
	store ratingStore
	locks keyedMutex
}

func NewRatingAggregator(store ratingStore) *RatingAggregator {
	return &RatingAggregator{store: store}
}

// Recompute reads the current reviews of bookID and stores their rounded mean, or 0 when
// there are none. A book that no longer exists is silently skipped.
func (a *RatingAggregator) Recompute(ctx context.Context, bookID primitive.ObjectID) error {
	unlock := a.locks.lock(bookID)
	defer unlock()

	reviews, err := a.store.ReviewsByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("load reviews of book %s: %w", bookID.Hex(), err)
	}
	ratings := make([]int, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}
	if err := a.store.SetAverageRating(ctx, bookID, AverageRating(ratings)); err != nil {
		return fmt.Errorf("store average rating of book %s: %w", bookID.Hex(), err)
	}
	return nil
}

// AverageRating is the arithmetic mean of ratings rounded to one decimal, 0 for none.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return math.Round(float64(total)/float64(len(ratings))*10) / 10
}

// keyedMutex hands out one mutex per book id and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id primitive.ObjectID) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[primitive.ObjectID]*refMutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
