package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReadMarker struct {
	LastReadAt        *time.Time          `bson:"lastReadAt" json:"lastReadAt"`
	LastReadMessageID *primitive.ObjectID `bson:"lastReadMessageId" json:"lastReadMessageId"`
}

// ReadState maps a user id (hex) to that user's read marker. A missing entry
// means the user has never read anything.
type ReadState map[string]ReadMarker

func (rs ReadState) For(userID primitive.ObjectID) (ReadMarker, bool) {
	if rs == nil {
		return ReadMarker{}, false
	}
	marker, ok := rs[userID.Hex()]
	return marker, ok
}

type Conversation struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants      []primitive.ObjectID `bson:"participants" json:"participants"`
	ParticipantsKey   string               `bson:"participantsKey" json:"participantsKey"`
	LastMessageAt     *time.Time           `bson:"lastMessageAt" json:"lastMessageAt"`
	LastMessageText   string               `bson:"lastMessageText" json:"lastMessageText"`
	LastMessageSender *primitive.ObjectID  `bson:"lastMessageSender" json:"lastMessageSender"`
	ReadState         ReadState            `bson:"readState" json:"readState"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ConversationSummary is a conversation as listed for one of its participants.
type ConversationSummary struct {
	Conversation `bson:",inline"`
	UnreadCount  int64 `bson:"-" json:"unreadCount"`
}
