package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/models"
)

// Conversations upserts under one lock, which gives the same
// one-document-per-key guarantee as the unique index does in MongoDB.
type Conversations struct {
	faults
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.Conversation
	byKey map[string]primitive.ObjectID
}

func NewConversations() *Conversations {
	return &Conversations{
		byID:  map[primitive.ObjectID]models.Conversation{},
		byKey: map[string]primitive.ObjectID{},
	}
}

func cloneConversation(c models.Conversation) *models.Conversation {
	c.Participants = copyIDs(c.Participants)
	c.ReadState = copyReadState(c.ReadState)
	return &c
}

func (s *Conversations) Upsert(_ context.Context, key string, participants []primitive.ObjectID, now time.Time) (*models.Conversation, error) {
	if err := s.fault("Upsert"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byKey[key]; ok {
		return cloneConversation(s.byID[id]), nil
	}
	conv := models.Conversation{
		ID:              primitive.NewObjectID(),
		Participants:    copyIDs(participants),
		ParticipantsKey: key,
		ReadState:       models.ReadState{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.byID[conv.ID] = conv
	s.byKey[key] = conv.ID
	return cloneConversation(conv), nil
}

func (s *Conversations) FindByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	if err := s.fault("FindByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *Conversations) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	if err := s.fault("ListForUser"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Conversation{}
	for _, c := range s.byID {
		if c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Conversations) UpdateLastMessage(_ context.Context, id primitive.ObjectID, at time.Time, text string, sender primitive.ObjectID) (bool, error) {
	if err := s.fault("UpdateLastMessage"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if c.LastMessageAt != nil && !c.LastMessageAt.Before(at) {
		return false, nil
	}
	c.LastMessageAt = &at
	c.LastMessageText = text
	c.LastMessageSender = &sender
	c.UpdatedAt = at
	s.byID[id] = c
	return true, nil
}

func (s *Conversations) SetReadMarker(_ context.Context, id, userID primitive.ObjectID, marker models.ReadMarker) (*models.Conversation, error) {
	if err := s.fault("SetReadMarker"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok || !c.HasParticipant(userID) {
		return nil, ErrNotFound
	}
	c.ReadState = copyReadState(c.ReadState)
	c.ReadState[userID.Hex()] = marker
	s.byID[id] = c
	return cloneConversation(c), nil
}

func (s *Conversations) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
