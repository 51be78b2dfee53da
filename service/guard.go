package service

import (
	"fmt"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthorizeReview returns nil when actingUserID owns the review and ErrForbidden otherwise.
func AuthorizeReview(review *models.Review, actingUserID primitive.ObjectID) error {
	if review.UserID.IsZero() || review.UserID != actingUserID {
		return fmt.Errorf("%w: user not authorized to modify review %s", ErrForbidden, review.ID.Hex())
	}
	return nil
}
