// Package messaging resolves pairwise conversations, appends messages and
// tracks what each participant has read.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/metrics"
	"heartline/models"
	"heartline/repository"
)

var (
	ErrOtherUserRequired     = apperr.InvalidArg("Other user ID is required")
	ErrInvalidUserID         = apperr.InvalidArg("Invalid user id")
	ErrSelfConversation      = apperr.InvalidArg("Cannot start a conversation with yourself")
	ErrUserNotFound          = apperr.NotFound("User not found")
	ErrInvalidConversationID = apperr.InvalidArg("Invalid conversation id")
	ErrConversationNotFound  = apperr.NotFound("Conversation not found")
	ErrNotParticipant        = apperr.Forbidden("Not allowed")
	ErrTextRequired          = apperr.InvalidArg("Text is required")
	ErrInvalidMessageType    = apperr.InvalidArg("Invalid message type")
	ErrInvalidParticipants   = apperr.Internal("Conversation participants are invalid")
	ErrMessageIDRequired     = apperr.InvalidArg("Message ID is required")
	ErrInvalidMessageID      = apperr.InvalidArg("Invalid message id")
	ErrMessageNotFound       = apperr.NotFound("Message not found")
)

type ConversationStore interface {
	Upsert(ctx context.Context, key string, participants []primitive.ObjectID, now time.Time) (*models.Conversation, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	UpdateLastMessage(ctx context.Context, id primitive.ObjectID, at time.Time, text string, sender primitive.ObjectID) (bool, error)
	SetReadMarker(ctx context.Context, id, userID primitive.ObjectID, marker models.ReadMarker) (*models.Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListByPair(ctx context.Context, key string) ([]models.Message, error)
	MarkRead(ctx context.Context, key string, recipient primitive.ObjectID, upTo time.Time, marker models.ReadMarker) (int64, error)
	CountUnread(ctx context.Context, key string, recipient primitive.ObjectID) (int64, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Service struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserLookup
	log           *zap.Logger
	now           func() time.Time
}

func NewService(conversations ConversationStore, messages MessageStore, users UserLookup, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		users:         users,
		log:           log,
		now:           time.Now,
	}
}

// timestamp is the service clock in UTC at millisecond precision, the
// resolution MongoDB stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// GetOrCreateConversation returns the one conversation between requester and
// the other user, creating it on first contact.
func (s *Service) GetOrCreateConversation(ctx context.Context, requesterID primitive.ObjectID, otherRaw string) (*models.Conversation, error) {
	otherRaw = strings.TrimSpace(otherRaw)
	if otherRaw == "" {
		return nil, ErrOtherUserRequired
	}
	otherID, err := primitive.ObjectIDFromHex(otherRaw)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if otherID == requesterID {
		return nil, ErrSelfConversation
	}

	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get conversation", err)
	}

	key, err := PairKey(requesterID.Hex(), otherID.Hex())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, "Invalid participants", err)
	}
	participants := []primitive.ObjectID{requesterID, otherID}
	if otherID.Hex() < requesterID.Hex() {
		participants[0], participants[1] = otherID, requesterID
	}

	conv, err := s.conversations.Upsert(ctx, key, participants, s.timestamp())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get conversation", err)
	}
	return conv, nil
}

type SendInput struct {
	Text     string
	Type     models.MessageType
	MediaURL string
}

// SendMessage appends a message from sender to the other participant and
// moves the conversation's last-message projection forward. The message is
// the source of truth: a failed projection write is logged and the stored
// message is still returned.
func (s *Service) SendMessage(ctx context.Context, senderID primitive.ObjectID, conversationRaw string, in SendInput) (*models.Message, error) {
	if in.Text == "" {
		return nil, ErrTextRequired
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidMessageType
	}

	conv, err := s.loadConversation(ctx, conversationRaw)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	if len(conv.Participants) != 2 {
		s.log.Error("conversation has invalid participants",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.Int("participants", len(conv.Participants)))
		return nil, ErrInvalidParticipants
	}

	recipientID := conv.Participants[0]
	if recipientID == senderID {
		recipientID = conv.Participants[1]
	}

	now := s.timestamp()
	msg := &models.Message{
		ConversationID:  conv.ID,
		Participants:    append([]primitive.ObjectID(nil), conv.Participants...),
		ParticipantsKey: conv.ParticipantsKey,
		SenderID:        senderID,
		RecipientID:     recipientID,
		Type:            in.Type,
		Text:            in.Text,
		MediaURL:        strings.TrimSpace(in.MediaURL),
		ReadState:       models.ReadState{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to send message", err)
	}
	metrics.MessagesSent.WithLabelValues(string(msg.Type)).Inc()

	applied, err := s.conversations.UpdateLastMessage(ctx, conv.ID, msg.CreatedAt, msg.Summary(), senderID)
	switch {
	case err != nil:
		metrics.ProjectionUpdates.WithLabelValues("failed").Inc()
		s.log.Error("failed to update conversation projection",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.String("message_id", msg.ID.Hex()),
			zap.Error(err))
	case applied:
		metrics.ProjectionUpdates.WithLabelValues("applied").Inc()
	default:
		metrics.ProjectionUpdates.WithLabelValues("stale").Inc()
	}
	return msg, nil
}

// ListConversations returns the user's conversations, most recent first,
// each with the number of messages the user has not read.
func (s *Service) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to list conversations", err)
	}

	out := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		unread, err := s.messages.CountUnread(ctx, conv.ParticipantsKey, userID)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "Failed to list conversations", err)
		}
		out = append(out, models.ConversationSummary{Conversation: conv, UnreadCount: unread})
	}
	return out, nil
}

// ListMessages returns the conversation's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, userID primitive.ObjectID, conversationRaw string) ([]models.Message, error) {
	conv, err := s.loadConversation(ctx, conversationRaw)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	msgs, err := s.messages.ListByPair(ctx, conv.ParticipantsKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to list messages", err)
	}
	return msgs, nil
}

// MarkRead records that the user has read the conversation up to and
// including the given message. The conversation's marker never moves back
// to an older message.
func (s *Service) MarkRead(ctx context.Context, userID primitive.ObjectID, conversationRaw, messageRaw string) (*models.Conversation, error) {
	messageRaw = strings.TrimSpace(messageRaw)
	if messageRaw == "" {
		return nil, ErrMessageIDRequired
	}
	messageID, err := primitive.ObjectIDFromHex(messageRaw)
	if err != nil {
		return nil, ErrInvalidMessageID
	}

	conv, err := s.loadConversation(ctx, conversationRaw)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	msg, err := s.findMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ParticipantsKey != conv.ParticipantsKey {
		return nil, ErrMessageNotFound
	}

	readAt := s.timestamp()
	marker := models.ReadMarker{LastReadAt: &readAt, LastReadMessageID: &msg.ID}
	if _, err := s.messages.MarkRead(ctx, conv.ParticipantsKey, userID, msg.CreatedAt, marker); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to mark messages read", err)
	}

	if s.markerIsNewer(ctx, conv, userID, msg) {
		return conv, nil
	}
	updated, err := s.conversations.SetReadMarker(ctx, conv.ID, userID, marker)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to mark messages read", err)
	}
	return updated, nil
}

// markerIsNewer reports whether the user's current marker already points at
// a message created after msg.
func (s *Service) markerIsNewer(ctx context.Context, conv *models.Conversation, userID primitive.ObjectID, msg *models.Message) bool {
	current, ok := conv.ReadState.For(userID)
	if !ok || current.LastReadMessageID == nil || *current.LastReadMessageID == msg.ID {
		return false
	}
	prev, err := s.messages.FindByID(ctx, *current.LastReadMessageID)
	if err != nil {
		return false
	}
	return prev.CreatedAt.After(msg.CreatedAt)
}

func (s *Service) loadConversation(ctx context.Context, raw string) (*models.Conversation, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrInvalidConversationID
	}
	conv, err := s.conversations.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get conversation", err)
	}
	return conv, nil
}

func (s *Service) findMessage(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	msg, err := s.messages.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get message", err)
	}
	return msg, nil
}
