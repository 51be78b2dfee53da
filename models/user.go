package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an identity created on first Google sign-in. Profile fields are refreshed on
// every sign-in and never edited here.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GoogleID    string             `bson:"googleId" json:"googleId"`
	DisplayName string             `bson:"displayName" json:"displayName"`
	FirstName   string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName    string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, DisplayName: u.DisplayName}
}
