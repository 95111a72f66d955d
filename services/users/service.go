// Package users implements account registration, login and lookup.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/auth"
	"heartline/models"
	"heartline/repository"
)

var (
	ErrCredentialsRequired = apperr.InvalidArg("Email and password are required")
	ErrEmailTaken          = apperr.AlreadyExists("Email already registered")
	ErrInvalidCredentials  = apperr.Unauthorized("Invalid credentials")
	ErrInvalidUserID       = apperr.InvalidArg("Invalid user id")
	ErrUserNotFound        = apperr.NotFound("User not found")
	ErrNotOwner            = apperr.Forbidden("You can only delete your own account")
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type ProfileRemover interface {
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type TokenIssuer interface {
	Issue(userID primitive.ObjectID) (string, error)
}

type Service struct {
	users    UserStore
	profiles ProfileRemover
	tokens   TokenIssuer
	log      *zap.Logger
	now      func() time.Time
}

func NewService(users UserStore, profiles ProfileRemover, tokens TokenIssuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	Telephone string
}

// Session is a user together with a freshly issued bearer token.
type Session struct {
	Token string
	User  *models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrCredentialsRequired
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to register user", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Telephone:    strings.TrimSpace(in.Telephone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to register user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return s.session(user)
}

// Login never reveals whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to login", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Warn("stored password hash is unusable", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// Me returns the authenticated user with a renewed token.
func (s *Service) Me(ctx context.Context, userID primitive.ObjectID) (*Session, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *Service) Get(ctx context.Context, rawID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	return s.find(ctx, id)
}

// Delete removes the caller's own account and profile.
func (s *Service) Delete(ctx context.Context, callerID primitive.ObjectID, rawID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if id != callerID {
		return nil, ErrNotOwner
	}

	user, err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to delete user", err)
	}

	if err := s.profiles.DeleteByUser(ctx, id); err != nil {
		s.log.Error("failed to delete profile of removed user", zap.String("user_id", id.Hex()), zap.Error(err))
	}
	s.log.Info("user deleted", zap.String("user_id", id.Hex()))
	return user, nil
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to get user", err)
	}
	return user, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to issue token", err)
	}
	return &Session{Token: token, User: user}, nil
}
