package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartline/database"
	"heartline/models"
)

type ProfileRepository struct {
	base
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{base{db: db, name: database.Profiles}}
}

// Create inserts the profile. A second profile for the same user yields ErrDuplicate.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if profile.ID.IsZero() {
		profile.ID = primitive.NewObjectID()
	}
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.Images == nil {
		profile.Images = []string{}
	}
	if _, err := coll.InsertOne(ctx, profile); err != nil {
		profile.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProfileRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"user": userID})
}

func (r *ProfileRepository) findOne(ctx context.Context, filter bson.M) (*models.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var profile models.Profile
	if err := coll.FindOne(ctx, filter).Decode(&profile); err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	defer cursor.Close(ctx)

	profiles := []models.Profile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

// Update applies the non-nil fields of upd and returns the updated document.
func (r *ProfileRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Profile, error) {
	set := bson.M{"updatedAt": now}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Age != nil {
		set["age"] = *upd.Age
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Interests != nil {
		set["interests"] = upd.Interests
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}
	return r.findOneAndSet(ctx, bson.M{"_id": id}, set)
}

func (r *ProfileRepository) SetAvatar(ctx context.Context, userID primitive.ObjectID, url string, now time.Time) (*models.Profile, error) {
	return r.findOneAndSet(ctx, bson.M{"user": userID}, bson.M{"avatar": url, "updatedAt": now})
}

func (r *ProfileRepository) findOneAndSet(ctx context.Context, filter, set bson.M) (*models.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var profile models.Profile
	if err := coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&profile); err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *ProfileRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteMany(ctx, bson.M{"user": userID}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
