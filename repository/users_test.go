package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartline/models"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &models.User{Email: "a@x.com", PasswordHash: "hash", CreatedAt: now(), UpdatedAt: now()}
	require.NoError(t, repo.Create(ctx, user))
	require.False(t, user.ID.IsZero())

	t.Run("duplicate email keeps the original", func(t *testing.T) {
		dup := &models.User{Email: "a@x.com", PasswordHash: "other"}
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)
		assert.True(t, dup.ID.IsZero())

		stored, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, stored.ID)
		assert.Equal(t, "hash", stored.PasswordHash)
	})

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Email)
	})

	t.Run("delete returns the removed user", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, deleted.ID)

		_, err = repo.FindByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.Delete(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
