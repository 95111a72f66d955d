package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/models"
)

func TestMessageRepository(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	key, participants := pairOf(a, b)
	convID := primitive.NewObjectID()
	start := now()

	send := func(from, to primitive.ObjectID, text string, offset time.Duration) *models.Message {
		msg := &models.Message{
			ConversationID:  convID,
			Participants:    participants,
			ParticipantsKey: key,
			SenderID:        from,
			RecipientID:     to,
			Type:            models.MessageText,
			Text:            text,
			CreatedAt:       start.Add(offset),
			UpdatedAt:       start.Add(offset),
		}
		require.NoError(t, repo.Insert(ctx, msg))
		return msg
	}

	m1 := send(a, b, "one", 0)
	m2 := send(b, a, "two", time.Second)
	m3 := send(a, b, "three", 2*time.Second)
	m4 := send(a, b, "four", 3*time.Second)

	msgs, err := repo.ListByPair(ctx, key)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []primitive.ObjectID{m1.ID, m2.ID, m3.ID, m4.ID},
		[]primitive.ObjectID{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})

	got, err := repo.FindByID(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got.RecipientID)
	_, err = repo.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)

	unread, err := repo.CountUnread(ctx, key, b)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	readAt := now()
	marked, err := repo.MarkRead(ctx, key, b, m3.CreatedAt, models.ReadMarker{LastReadAt: &readAt, LastReadMessageID: &m3.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	unread, err = repo.CountUnread(ctx, key, b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	unread, err = repo.CountUnread(ctx, key, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread, "reads by one participant do not affect the other")

	marked, err = repo.MarkRead(ctx, key, b, m3.CreatedAt, models.ReadMarker{LastReadAt: &readAt, LastReadMessageID: &m3.ID})
	require.NoError(t, err)
	assert.Zero(t, marked, "already read messages keep their first marker")
}
