package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reviews runs the review lifecycle. Every successful create, update or delete ends with a
// recomputation of the owning book's average rating.
type Reviews struct {
	store      Store
	aggregator *RatingAggregator
	log        *logger.Logger
	now        func() time.Time
}

func NewReviews(st Store, aggregator *RatingAggregator, log *logger.Logger) *Reviews {
	return &Reviews{
		store:      st,
		aggregator: aggregator,
		log:        log.With("service", "Reviews"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Reviews) Create(ctx context.Context, bookID, actingUserID primitive.ObjectID, in ReviewInput) (*models.Review, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.store.BookByID(ctx, bookID); err != nil {
		return nil, bookLookupErr(bookID, err)
	}
	review := &models.Review{
		BookID:    bookID,
		UserID:    actingUserID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now(),
	}
	id, err := s.store.InsertReview(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	review.ID = id

	// The book may have been deleted (and its reviews cascaded) between the lookup and the
	// insert. Remove the orphan instead of leaving it behind.
	if _, err := s.store.BookByID(ctx, bookID); errors.Is(err, store.ErrNotFound) {
		if delErr := s.store.DeleteReview(ctx, id); delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
			s.log.Error("remove orphaned review", "reviewId", id.Hex(), "bookId", bookID.Hex(), "error", delErr)
		}
		return nil, fmt.Errorf("%w: book %s", ErrNotFound, bookID.Hex())
	}

	if err := s.aggregator.Recompute(ctx, bookID); err != nil {
		return nil, err
	}
	return review, nil
}

// Update applies the non-zero fields of patch. A zero rating or empty comment keeps the
// stored value, so neither can be cleared through an update.
func (s *Reviews) Update(ctx context.Context, reviewID, actingUserID primitive.ObjectID, patch ReviewPatch) (*models.Review, error) {
	if err := validateStruct(&patch); err != nil {
		return nil, err
	}
	review, err := s.ownedReview(ctx, reviewID, actingUserID)
	if err != nil {
		return nil, err
	}
	if patch.Rating != 0 {
		review.Rating = patch.Rating
	}
	if patch.Comment != "" {
		review.Comment = patch.Comment
	}
	if err := s.store.UpdateReview(ctx, review.ID, review.Rating, review.Comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, reviewID.Hex())
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	if err := s.aggregator.Recompute(ctx, review.BookID); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes the review and then refreshes its book's average. The removal is not rolled
// back when the refresh fails.
func (s *Reviews) Delete(ctx context.Context, reviewID, actingUserID primitive.ObjectID) error {
	review, err := s.ownedReview(ctx, reviewID, actingUserID)
	if err != nil {
		return err
	}
	bookID := review.BookID
	if err := s.store.DeleteReview(ctx, review.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, reviewID.Hex())
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return s.aggregator.Recompute(ctx, bookID)
}

func (s *Reviews) ownedReview(ctx context.Context, reviewID, actingUserID primitive.ObjectID) (*models.Review, error) {
	review, err := s.store.ReviewByID(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: review %s", ErrNotFound, reviewID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	if err := AuthorizeReview(review, actingUserID); err != nil {
		return nil, err
	}
	return review, nil
}

func bookLookupErr(bookID primitive.ObjectID, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: book %s", ErrNotFound, bookID.Hex())
	}
	return fmt.Errorf("load book: %w", err)
}
