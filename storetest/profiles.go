package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartline/models"
)

type Profiles struct {
	faults
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Profile
}

func NewProfiles() *Profiles {
	return &Profiles{byID: map[primitive.ObjectID]models.Profile{}}
}

func cloneProfile(p models.Profile) *models.Profile {
	p.Interests = copyStrings(p.Interests)
	p.Images = copyStrings(p.Images)
	return &p
}

func (s *Profiles) Create(_ context.Context, profile *models.Profile) error {
	if err := s.fault("Create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byID {
		if p.UserID == profile.UserID {
			return ErrDuplicate
		}
	}
	if profile.ID.IsZero() {
		profile.ID = primitive.NewObjectID()
	}
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.Images == nil {
		profile.Images = []string{}
	}
	s.byID[profile.ID] = *cloneProfile(*profile)
	return nil
}

func (s *Profiles) FindByID(_ context.Context, id primitive.ObjectID) (*models.Profile, error) {
	if err := s.fault("FindByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Profiles) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	if err := s.fault("FindByUser"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byID {
		if p.UserID == userID {
			return cloneProfile(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Profiles) List(_ context.Context) ([]models.Profile, error) {
	if err := s.fault("List"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Profile, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, *cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Profiles) Update(_ context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Profile, error) {
	if err := s.fault("Update"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Age != nil {
		p.Age = *upd.Age
	}
	if upd.Gender != nil {
		p.Gender = *upd.Gender
	}
	if upd.Location != nil {
		p.Location = *upd.Location
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	if upd.Interests != nil {
		p.Interests = copyStrings(upd.Interests)
	}
	if upd.Images != nil {
		p.Images = copyStrings(upd.Images)
	}
	p.UpdatedAt = now
	s.byID[id] = p
	return cloneProfile(p), nil
}

func (s *Profiles) SetAvatar(_ context.Context, userID primitive.ObjectID, url string, now time.Time) (*models.Profile, error) {
	if err := s.fault("SetAvatar"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.byID {
		if p.UserID == userID {
			p.Avatar = url
			p.UpdatedAt = now
			s.byID[id] = p
			return cloneProfile(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Profiles) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	if err := s.fault("DeleteByUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.byID {
		if p.UserID == userID {
			delete(s.byID, id)
		}
	}
	return nil
}
