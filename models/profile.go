package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Profile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Age       int                `bson:"age" json:"age"`
	Gender    string             `bson:"gender" json:"gender"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`
	Bio       string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Interests []string           `bson:"interests" json:"interests"`
	Images    []string           `bson:"images" json:"images"` // ordered image URLs
	Avatar    string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string
	Age       *int
	Gender    *string
	Location  *string
	Bio       *string
	Interests []string
	Images    []string
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Age == nil && u.Gender == nil && u.Location == nil &&
		u.Bio == nil && u.Interests == nil && u.Images == nil
}
