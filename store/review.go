package store

import (
	"context"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error) {
	res, err := db.Reviews().InsertOne(ctx, review)
	if err != nil {
		return primitive.NilObjectID, translate(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ReviewByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	if err := db.Reviews().FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ReviewsByBook returns every review of a book, oldest first.
func (db *DB) ReviewsByBook(ctx context.Context, bookID primitive.ObjectID) ([]models.Review, error) {
	cur, err := db.Reviews().Find(ctx, bson.M{"bookId": bookID}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	reviews := []models.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// UpdateReview overwrites rating and comment. bookId and userId are never written.
func (db *DB) UpdateReview(ctx context.Context, id primitive.ObjectID, rating int, comment string) error {
	res, err := db.Reviews().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating":  rating,
		"comment": comment,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteReview(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Reviews().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReviewsByBook removes all reviews of a book and reports how many were removed.
func (db *DB) DeleteReviewsByBook(ctx context.Context, bookID primitive.ObjectID) (int64, error) {
	res, err := db.Reviews().DeleteMany(ctx, bson.M{"bookId": bookID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
