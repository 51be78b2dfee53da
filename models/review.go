package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is one user's rating of a book. UserID is fixed at creation.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookID    primitive.ObjectID `bson:"bookId" json:"bookId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserSummary is the public slice of a user shown next to their reviews.
type UserSummary struct {
	ID          primitive.ObjectID `json:"id"`
	DisplayName string             `json:"displayName"`
}

// ReviewWithUser is a review joined with its author's display name.
type ReviewWithUser struct {
	Review
	User *UserSummary `json:"user,omitempty"`
}
