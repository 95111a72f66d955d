package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessageAudio MessageType = "audio"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageAudio:
		return true
	}
	return false
}

// Summary is the text shown as a conversation's last message.
func (m *Message) Summary() string {
	if m.Type == MessageText {
		return m.Text
	}
	return "[" + string(m.Type) + "]"
}

type Message struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ConversationID  primitive.ObjectID   `bson:"conversationId" json:"conversationId"`
	Participants    []primitive.ObjectID `bson:"participants" json:"participants"`
	ParticipantsKey string               `bson:"participantsKey" json:"participantsKey"`
	SenderID        primitive.ObjectID   `bson:"senderId" json:"senderId"`
	RecipientID     primitive.ObjectID   `bson:"recipientId" json:"recipientId"`
	Type            MessageType          `bson:"type" json:"type"`
	Text            string               `bson:"text" json:"text"`
	MediaURL        string               `bson:"mediaUrl" json:"mediaUrl"`
	ReadState       ReadState            `bson:"readState" json:"readState"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}
