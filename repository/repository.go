// Package repository holds the MongoDB-backed stores for users, profiles,
// conversations and messages.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"heartline/database"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// opTimeout bounds every store call made on behalf of a request.
const opTimeout = 10 * time.Second

type collectionSource interface {
	Collection(ctx context.Context, name string) (*mongo.Collection, error)
}

var _ collectionSource = (*database.DB)(nil)

type base struct {
	db   collectionSource
	name string
}

func (b base) collection(ctx context.Context) (*mongo.Collection, error) {
	return b.db.Collection(ctx, b.name)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
