package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReadStateForUnknownUserIsNeverRead(t *testing.T) {
	var nilState ReadState
	marker, ok := nilState.For(primitive.NewObjectID())
	assert.False(t, ok)
	assert.Nil(t, marker.LastReadAt)

	now := time.Now()
	msgID := primitive.NewObjectID()
	reader := primitive.NewObjectID()
	state := ReadState{reader.Hex(): {LastReadAt: &now, LastReadMessageID: &msgID}}

	marker, ok = state.For(reader)
	require.True(t, ok)
	assert.Equal(t, msgID, *marker.LastReadMessageID)

	_, ok = state.For(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestMessageSummary(t *testing.T) {
	assert.Equal(t, "hi", (&Message{Type: MessageText, Text: "hi"}).Summary())
	assert.Equal(t, "[image]", (&Message{Type: MessageImage, Text: "look"}).Summary())
	assert.Equal(t, "[audio]", (&Message{Type: MessageAudio}).Summary())
}

func TestMessageTypeValid(t *testing.T) {
	for _, typ := range []MessageType{MessageText, MessageImage, MessageVideo, MessageAudio} {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, MessageType("sticker").Valid())
	assert.False(t, MessageType("").Valid())
}

func TestUserJSONNeverCarriesPasswordHash(t *testing.T) {
	raw, err := json.Marshal(User{Email: "a@x.com", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "passwordHash")
}

func TestProfileUpdateEmpty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.Empty())
	bio := "hello"
	assert.False(t, ProfileUpdate{Bio: &bio}.Empty())
	assert.False(t, ProfileUpdate{Interests: []string{}}.Empty())
}
