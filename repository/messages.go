package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"heartline/database"
	"heartline/models"
)

type MessageRepository struct {
	base
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{base{db: db, name: database.Messages}}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadState == nil {
		msg.ReadState = models.ReadState{}
	}
	if _, err := coll.InsertOne(ctx, msg); err != nil {
		msg.ID = primitive.NilObjectID
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var msg models.Message
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// ListByPair returns every message exchanged under the pair key, oldest first.
func (r *MessageRepository) ListByPair(ctx context.Context, key string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{"participantsKey": key}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// MarkRead stamps marker on every message of the pair addressed to recipient
// that was created at or before upTo and has not been read by them yet.
func (r *MessageRepository) MarkRead(ctx context.Context, key string, recipient primitive.ObjectID, upTo time.Time, marker models.ReadMarker) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	field := "readState." + recipient.Hex()
	filter := bson.M{
		"participantsKey": key,
		"recipientId":     recipient,
		"createdAt":       bson.M{"$lte": upTo},
		field:             bson.M{"$exists": false},
	}
	res, err := coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{field: marker}})
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return res.ModifiedCount, nil
}

// CountUnread counts messages of the pair addressed to recipient that they
// have not read.
func (r *MessageRepository) CountUnread(ctx context.Context, key string, recipient primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	filter := bson.M{
		"participantsKey":              key,
		"recipientId":                  recipient,
		"readState." + recipient.Hex(): bson.M{"$exists": false},
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
