package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/models"
)

type Messages struct {
	faults
	mu   sync.Mutex
	msgs []models.Message
}

func NewMessages() *Messages {
	return &Messages{}
}

func cloneMessage(m models.Message) *models.Message {
	m.Participants = copyIDs(m.Participants)
	m.ReadState = copyReadState(m.ReadState)
	return &m
}

func (s *Messages) Insert(_ context.Context, msg *models.Message) error {
	if err := s.fault("Insert"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadState == nil {
		msg.ReadState = models.ReadState{}
	}
	s.msgs = append(s.msgs, *cloneMessage(*msg))
	return nil
}

func (s *Messages) FindByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	if err := s.fault("FindByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.msgs {
		if m.ID == id {
			return cloneMessage(m), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Messages) ListByPair(_ context.Context, key string) ([]models.Message, error) {
	if err := s.fault("ListByPair"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Message{}
	for _, m := range s.msgs {
		if m.ParticipantsKey == key {
			out = append(out, *cloneMessage(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Messages) MarkRead(_ context.Context, key string, recipient primitive.ObjectID, upTo time.Time, marker models.ReadMarker) (int64, error) {
	if err := s.fault("MarkRead"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i, m := range s.msgs {
		if m.ParticipantsKey != key || m.RecipientID != recipient || m.CreatedAt.After(upTo) {
			continue
		}
		if _, read := m.ReadState.For(recipient); read {
			continue
		}
		m.ReadState = copyReadState(m.ReadState)
		m.ReadState[recipient.Hex()] = marker
		s.msgs[i] = m
		n++
	}
	return n, nil
}

func (s *Messages) CountUnread(_ context.Context, key string, recipient primitive.ObjectID) (int64, error) {
	if err := s.fault("CountUnread"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.msgs {
		if m.ParticipantsKey != key || m.RecipientID != recipient {
			continue
		}
		if _, read := m.ReadState.For(recipient); !read {
			n++
		}
	}
	return n, nil
}

func (s *Messages) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}
