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

type ConversationRepository struct {
	base
}

func NewConversationRepository(db *database.DB) *ConversationRepository {
	return &ConversationRepository{base{db: db, name: database.Conversations}}
}

// Upsert returns the conversation stored under key, creating it in the same
// operation when it does not exist. Two callers racing on a new key both get
// the single stored document: the loser of the unique-index race re-reads it.
func (r *ConversationRepository) Upsert(ctx context.Context, key string, participants []primitive.ObjectID, now time.Time) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"participantsKey": key}
	update := bson.M{"$setOnInsert": bson.M{
		"participants":      participants,
		"lastMessageAt":     nil,
		"lastMessageText":   "",
		"lastMessageSender": nil,
		"readState":         bson.M{},
		"createdAt":         now,
		"updatedAt":         now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		err = coll.FindOne(ctx, filter).Decode(&conv)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", translate(err))
	}
	return &conv, nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "lastMessageAt", Value: -1},
		{Key: "createdAt", Value: -1},
	})
	cursor, err := coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	convs := []models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// UpdateLastMessage moves the last-message projection forward. It only
// writes when the stored lastMessageAt is unset or older than at, so a late
// write for an older message never overwrites a newer one. It reports
// whether the projection changed.
func (r *ConversationRepository) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, at time.Time, text string, sender primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return false, err
	}
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"lastMessageAt": nil},
			bson.M{"lastMessageAt": bson.M{"$lt": at}},
		},
	}
	update := bson.M{"$set": bson.M{
		"lastMessageAt":     at,
		"lastMessageText":   text,
		"lastMessageSender": sender,
		"updatedAt":         at,
	}}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update last message: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// SetReadMarker records userID's read marker on the conversation and returns
// the updated document. ErrNotFound means no such conversation has userID as
// a participant.
func (r *ConversationRepository) SetReadMarker(ctx context.Context, id, userID primitive.ObjectID, marker models.ReadMarker) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": id, "participants": userID}
	update := bson.M{"$set": bson.M{
		"readState." + userID.Hex(): marker,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv models.Conversation
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}
