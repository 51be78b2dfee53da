package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Author        string             `bson:"author" json:"author"`
	Genre         string             `bson:"genre,omitempty" json:"genre,omitempty"`
	PublishedYear int                `bson:"publishedYear,omitempty" json:"publishedYear,omitempty"`
	ISBN          string             `bson:"isbn,omitempty" json:"isbn,omitempty"` // sparse unique index; empty means absent
	Summary       string             `bson:"summary,omitempty" json:"summary,omitempty"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
	CoverKey      string             `bson:"coverKey,omitempty" json:"-"` // object key in S3
	CoverURL      string             `bson:"-" json:"coverUrl,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// BookPatch carries the editable fields of a book. Title and Author are always written;
// nil pointers leave the stored value untouched and an empty ISBN removes it.
type BookPatch struct {
	Title         string
	Author        string
	Genre         *string
	PublishedYear *int
	ISBN          *string
	Summary       *string
}
