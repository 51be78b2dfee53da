package store

import (
	"context"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, translate(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

// UpdateBook applies patch and returns the book as stored afterwards.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, patch models.BookPatch) (*models.Book, error) {
	set := bson.M{
		"title":  patch.Title,
		"author": patch.Author,
	}
	unset := bson.M{}
	if patch.Genre != nil {
		set["genre"] = *patch.Genre
	}
	if patch.PublishedYear != nil {
		set["publishedYear"] = *patch.PublishedYear
	}
	if patch.Summary != nil {
		set["summary"] = *patch.Summary
	}
	if patch.ISBN != nil {
		if *patch.ISBN == "" {
			unset["isbn"] = ""
		} else {
			set["isbn"] = *patch.ISBN
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&book)
	if err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

// DeleteBook removes a book by ID and returns the removed document.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book)
	if err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

// SetAverageRating stores the derived rating. A missing book is not an error.
func (db *DB) SetAverageRating(ctx context.Context, id primitive.ObjectID, avg float64) error {
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"averageRating": avg}})
	return err
}

func (db *DB) SetBookCover(ctx context.Context, id primitive.ObjectID, key string) error {
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"coverKey": key}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
