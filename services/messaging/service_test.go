package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/apperr"
	"heartline/models"
	"heartline/storetest"
)

type fixture struct {
	svc           *Service
	users         *storetest.Users
	conversations *storetest.Conversations
	messages      *storetest.Messages
	clock         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:         storetest.NewUsers(),
		conversations: storetest.NewConversations(),
		messages:      storetest.NewMessages(),
		clock:         time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.conversations, f.messages, f.users, nil)
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) user(t *testing.T, email string) primitive.ObjectID {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func TestGetOrCreateConversationIsOrderIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a@x.com"), f.user(t, "b@x.com")

	ab, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)
	ba, err := f.svc.GetOrCreateConversation(ctx, b, a.Hex())
	require.NoError(t, err)

	assert.Equal(t, ab.ID, ba.ID)
	assert.Equal(t, 1, f.conversations.Len())
	assert.Len(t, ab.Participants, 2)
	assert.True(t, ab.HasParticipant(a))
	assert.True(t, ab.HasParticipant(b))

	key, err := PairKey(a.Hex(), b.Hex())
	require.NoError(t, err)
	assert.Equal(t, key, ab.ParticipantsKey)
	assert.Nil(t, ab.LastMessageAt)
}

func TestConcurrentFirstContactCreatesOneConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a@x.com"), f.user(t, "b@x.com")

	const callers = 32
	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			me, other := a, b
			if i%2 == 1 {
				me, other = b, a
			}
			conv, err := f.svc.GetOrCreateConversation(ctx, me, other.Hex())
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, f.conversations.Len())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreateConversationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@x.com")

	_, err := f.svc.GetOrCreateConversation(ctx, a, "")
	assert.ErrorIs(t, err, ErrOtherUserRequired)

	_, err = f.svc.GetOrCreateConversation(ctx, a, "nope")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = f.svc.GetOrCreateConversation(ctx, a, a.Hex())
	assert.ErrorIs(t, err, ErrSelfConversation)

	_, err = f.svc.GetOrCreateConversation(ctx, a, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrUserNotFound)

	b := f.user(t, "b@x.com")
	f.conversations.FailOn("Upsert", errors.New("boom"))
	_, err = f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.Zero(t, f.conversations.Len())
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a@x.com"), f.user(t, "b@x.com")
	conv, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, b, msg.RecipientID)
	assert.Equal(t, a, msg.SenderID)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, conv.ParticipantsKey, msg.ParticipantsKey)
	assert.Equal(t, conv.ID, msg.ConversationID)

	reply, err := f.svc.SendMessage(ctx, b, conv.ID.Hex(), SendInput{Text: "pic", Type: models.MessageImage, MediaURL: "https://cdn/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, a, reply.RecipientID)

	got, err := f.conversations.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, reply.CreatedAt.Equal(*got.LastMessageAt))
	assert.Equal(t, "[image]", got.LastMessageText)
	require.NotNil(t, got.LastMessageSender)
	assert.Equal(t, b, *got.LastMessageSender)
}

func TestSendMessageRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "a@x.com"), f.user(t, "b@x.com"), f.user(t, "c@x.com")
	conv, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, c, conv.ID.Hex(), SendInput{Text: "intrude"})
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Zero(t, f.messages.Len(), "non-participant send persists nothing")

	_, err = f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{})
	assert.ErrorIs(t, err, ErrTextRequired)

	_, err = f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "x", Type: "sticker"})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	_, err = f.svc.SendMessage(ctx, a, "bad", SendInput{Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidConversationID)

	_, err = f.svc.SendMessage(ctx, a, primitive.NewObjectID().Hex(), SendInput{Text: "x"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	f.messages.FailOn("Insert", errors.New("boom"))
	_, err = f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "x"})
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	got, err := f.conversations.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastMessageAt, "failed insert leaves the projection untouched")
}

func TestSendMessageRejectsMalformedConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@x.com")

	conv, err := f.conversations.Upsert(ctx, "solo", []primitive.ObjectID{a}, time.Now())
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidParticipants)
	assert.Zero(t, f.messages.Len())
}

func TestProjectionFailureStillReturnsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a@x.com"), f.user(t, "b@x.com")
	conv, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)

	f.conversations.FailOn("UpdateLastMessage", errors.New("write conflict"))
	msg, err := f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "hi"})
	require.NoError(t, err)
	assert.False(t, msg.ID.IsZero())
	assert.Equal(t, 1, f.messages.Len())
}

func TestProjectionKeepsLatestUnderConcurrentSends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a@x.com"), f.user(t, "b@x.com")
	conv, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := a
			if i%2 == 1 {
				sender = b
			}
			_, err := f.svc.SendMessage(ctx, sender, conv.ID.Hex(), SendInput{Text: "m"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.svc.ListMessages(ctx, a, conv.ID.Hex())
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	latest := msgs[len(msgs)-1]

	got, err := f.conversations.FindByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, latest.CreatedAt.Equal(*got.LastMessageAt))
	assert.Equal(t, latest.SenderID, *got.LastMessageSender)
}

func TestListMessagesRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "a@x.com"), f.user(t, "b@x.com"), f.user(t, "c@x.com")
	conv, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, a, conv.ID.Hex(), SendInput{Text: "one"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, b, conv.ID.Hex(), SendInput{Text: "two"})
	require.NoError(t, err)

	msgs, err := f.svc.ListMessages(ctx, b, conv.ID.Hex())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)

	_, err = f.svc.ListMessages(ctx, c, conv.ID.Hex())
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMarkReadAndUnreadCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "a@x.com"), f.user(t, "b@x.com"), f.user(t, "c@x.com")
	ab, err := f.svc.GetOrCreateConversation(ctx, a, b.Hex())
	require.NoError(t, err)
	ac, err := f.svc.GetOrCreateConversation(ctx, a, c.Hex())
	require.NoError(t, err)

	m1, err := f.svc.SendMessage(ctx, b, ab.ID.Hex(), SendInput{Text: "one"})
	require.NoError(t, err)
	m2, err := f.svc.SendMessage(ctx, b, ab.ID.Hex(), SendInput{Text: "two"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, a, ab.ID.Hex(), SendInput{Text: "mine"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, c, ac.ID.Hex(), SendInput{Text: "hey"})
	require.NoError(t, err)

	list, err := f.svc.ListConversations(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ac.ID, list[0].ID, "most recent conversation first")
	assert.EqualValues(t, 1, list[0].UnreadCount)
	assert.EqualValues(t, 2, list[1].UnreadCount)

	conv, err := f.svc.MarkRead(ctx, a, ab.ID.Hex(), m2.ID.Hex())
	require.NoError(t, err)
	marker, ok := conv.ReadState.For(a)
	require.True(t, ok)
	assert.Equal(t, m2.ID, *marker.LastReadMessageID)

	list, err = f.svc.ListConversations(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 0, list[1].UnreadCount)

	conv, err = f.svc.MarkRead(ctx, a, ab.ID.Hex(), m1.ID.Hex())
	require.NoError(t, err)
	marker, _ = conv.ReadState.For(a)
	assert.Equal(t, m2.ID, *marker.LastReadMessageID, "marker never moves back")

	_, err = f.svc.MarkRead(ctx, c, ab.ID.Hex(), m1.ID.Hex())
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.svc.MarkRead(ctx, a, ac.ID.Hex(), m1.ID.Hex())
	assert.ErrorIs(t, err, ErrMessageNotFound, "message from another pair")

	_, err = f.svc.MarkRead(ctx, a, ab.ID.Hex(), "")
	assert.ErrorIs(t, err, ErrMessageIDRequired)

	_, err = f.svc.MarkRead(ctx, a, ab.ID.Hex(), "zz")
	assert.ErrorIs(t, err, ErrInvalidMessageID)
}
