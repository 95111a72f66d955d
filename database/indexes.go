package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the stores rely on. The unique indexes
// on users.email, profiles.user and conversations.participantsKey are what
// enforce one account per email, one profile per user and one conversation
// per pair.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	db, err := d.Database(ctx)
	if err != nil {
		return err
	}

	collections := map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Profiles: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Conversations: {
			{Keys: bson.D{{Key: "participantsKey", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participants", Value: 1}}},
			{Keys: bson.D{{Key: "lastMessageAt", Value: -1}}},
		},
		Messages: {
			{Keys: bson.D{{Key: "participantsKey", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "recipientId", Value: 1}}},
		},
	}

	for name, indexes := range collections {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}
