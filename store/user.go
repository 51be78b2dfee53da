package store

import (
	"context"
	"time"

	"github.com/kevinaaaquil/bookreviews/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertGoogleUser creates the user on first sign-in and refreshes the profile afterwards.
func (db *DB) UpsertGoogleUser(ctx context.Context, user *models.User) (*models.User, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	update := bson.M{
		"$set": bson.M{
			"displayName": user.DisplayName,
			"firstName":   user.FirstName,
			"lastName":    user.LastName,
			"email":       user.Email,
			"image":       user.Image,
		},
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}
	var u models.User
	err := db.Users().FindOneAndUpdate(ctx, bson.M{"googleId": user.GoogleID}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (db *DB) UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := db.Users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
