// Package avatars brokers direct-to-bucket avatar uploads: it hands out
// short-lived presigned PUT URLs and later records the uploaded object on
// the caller's profile.
package avatars

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/models"
	"heartline/repository"
	"heartline/storage"
)

const DefaultUploadTTL = 60 * time.Second

var allowedMimes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/jpg":  "jpg",
}

var (
	ErrBucketRequired  = apperr.InvalidArg("Put a bucket to connect to")
	ErrInvalidMime     = apperr.InvalidArg("Invalid mime type")
	ErrNoPublicURL     = apperr.Internal("R2_PUBLIC_URL or R2_AVATAR_PUBLIC_URL must be set for avatar uploads")
	ErrKeyURLRequired  = apperr.InvalidArg("key and url are required")
	ErrInvalidKeyScope = apperr.Forbidden("Invalid key scope")
	ErrURLMismatch     = apperr.InvalidArg("url does not match key")
	ErrProfileNotFound = apperr.NotFound("Profile not found")
)

type Presigner interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error)
	PublicURL(key string) (string, error)
}

type ProfileStore interface {
	SetAvatar(ctx context.Context, userID primitive.ObjectID, url string, now time.Time) (*models.Profile, error)
}

type Service struct {
	presigner Presigner
	profiles  ProfileStore
	ttl       time.Duration
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(presigner Presigner, profiles ProfileStore, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		presigner: presigner,
		profiles:  profiles,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type Upload struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	URL       string `json:"url"`
}

func keyPrefix(userID primitive.ObjectID) string {
	return "avatar/" + userID.Hex() + "/"
}

// Presign reserves a fresh object key under the caller's avatar prefix and
// returns a URL to upload it to plus the URL it will be served from.
func (s *Service) Presign(ctx context.Context, userID primitive.ObjectID, mime, bucket string) (*Upload, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	ext, ok := allowedMimes[mime]
	if !ok {
		return nil, ErrInvalidMime
	}

	key := keyPrefix(userID) + s.newID() + "." + ext
	publicURL, err := s.presigner.PublicURL(key)
	if errors.Is(err, storage.ErrNoPublicURL) {
		return nil, ErrNoPublicURL
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to presign avatar upload", err)
	}

	uploadURL, err := s.presigner.PresignPut(ctx, bucket, key, mime, s.ttl)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to presign avatar upload", err)
	}
	return &Upload{UploadURL: uploadURL, Key: key, URL: publicURL}, nil
}

// Confirm records an uploaded avatar on the caller's profile. The key must
// name a single object directly under the caller's own prefix.
func (s *Service) Confirm(ctx context.Context, userID primitive.ObjectID, key, url string) (*models.Profile, error) {
	key = strings.TrimSpace(key)
	url = strings.TrimSpace(url)
	if key == "" || url == "" {
		return nil, ErrKeyURLRequired
	}

	prefix := keyPrefix(userID)
	name := strings.TrimPrefix(key, prefix)
	if !strings.HasPrefix(key, prefix) || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		s.log.Warn("rejected avatar key outside caller scope",
			zap.String("user_id", userID.Hex()), zap.String("key", key))
		return nil, ErrInvalidKeyScope
	}

	expected, err := s.presigner.PublicURL(key)
	switch {
	case errors.Is(err, storage.ErrNoPublicURL):
		// No public base to compare against.
	case err != nil:
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to confirm avatar", err)
	case expected != url:
		return nil, ErrURLMismatch
	}

	profile, err := s.profiles.SetAvatar(ctx, userID, url, s.now().UTC().Truncate(time.Millisecond))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "Failed to confirm avatar", err)
	}
	s.log.Info("avatar saved", zap.String("user_id", userID.Hex()), zap.String("key", key))
	return profile, nil
}
