// Package profiles manages the single dating profile each user owns.
package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/models"
	"heartline/repository"
)

var (
	ErrFieldsRequired   = apperr.InvalidArg("Name, age and gender are required")
	ErrInvalidAge       = apperr.InvalidArg("Age must be a positive number")
	ErrInvalidProfileID = apperr.InvalidArg("Invalid profile id")
	ErrNothingToUpdate  = apperr.InvalidArg("No fields to update")
	ErrProfileExists    = apperr.AlreadyExists("Profile already exists")
	ErrProfileNotFound  = apperr.NotFound("Profile not found")
	ErrNotProfileOwner  = apperr.Forbidden("You can only update your own profile")
)

type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate, now time.Time) (*models.Profile, error)
}

type Service struct {
	profiles ProfileStore
	log      *zap.Logger
	now      func() time.Time
}

func NewService(profiles ProfileStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{profiles: profiles, log: log, now: time.Now}
}

type CreateInput struct {
	Name      string
	Age       *int
	Gender    string
	Location  string
	Bio       string
	Interests []string
	Images    []string
}

func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Profile, error) {
	name := strings.TrimSpace(in.Name)
	gender := strings.TrimSpace(in.Gender)
	if name == "" || gender == "" || in.Age == nil {
		return nil, ErrFieldsRequired
	}
	if *in.Age <= 0 {
		return nil, ErrInvalidAge
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	profile := &models.Profile{
		UserID:    userID,
		Name:      name,
		Age:       *in.Age,
		Gender:    gender,
		Location:  strings.TrimSpace(in.Location),
		Bio:       in.Bio,
		Interests: trimAll(in.Interests),
		Images:    trimAll(in.Images),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrProfileExists
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to create profile", err)
	}

	s.log.Info("profile created", zap.String("user_id", userID.Hex()), zap.String("profile_id", profile.ID.Hex()))
	return profile, nil
}

func (s *Service) Me(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	profile, err := s.profiles.FindByUser(ctx, userID)
	return s.found(profile, err)
}

func (s *Service) Get(ctx context.Context, rawID string) (*models.Profile, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidProfileID
	}
	profile, err := s.profiles.FindByID(ctx, id)
	return s.found(profile, err)
}

func (s *Service) All(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to list profiles", err)
	}
	return profiles, nil
}

// Update applies a partial update to a profile the caller owns and returns
// the stored result.
func (s *Service) Update(ctx context.Context, callerID primitive.ObjectID, rawID string, upd models.ProfileUpdate) (*models.Profile, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidProfileID
	}
	if upd.Empty() {
		return nil, ErrNothingToUpdate
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, ErrFieldsRequired
	}
	if upd.Gender != nil && strings.TrimSpace(*upd.Gender) == "" {
		return nil, ErrFieldsRequired
	}
	if upd.Age != nil && *upd.Age <= 0 {
		return nil, ErrInvalidAge
	}

	current, err := s.found(s.profiles.FindByID(ctx, id))
	if err != nil {
		return nil, err
	}
	if current.UserID != callerID {
		return nil, ErrNotProfileOwner
	}

	upd.Interests = trimAll(upd.Interests)
	upd.Images = trimAll(upd.Images)
	updated, err := s.profiles.Update(ctx, id, upd, s.now().UTC().Truncate(time.Millisecond))
	return s.found(updated, err)
}

func (s *Service) found(profile *models.Profile, err error) (*models.Profile, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get profile", err)
	}
	return profile, nil
}

// trimAll trims every entry and drops blanks. nil stays nil.
func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
