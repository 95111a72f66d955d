package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/models"
	"heartline/repository"
)

const (
	UserIDKey = "userId"
	UserKey   = "user"
)

type TokenVerifier interface {
	Verify(raw string) (primitive.ObjectID, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header whose
// subject is an existing user, and stores that user on the context.
func JWTAuth(tokens TokenVerifier, users UserLookup, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials.
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperr.Unauthorized("Authentication required"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abort(c, apperr.Unauthorized("Format should be: Bearer <token>"))
			return
		}

		userID, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, apperr.Unauthorized("Invalid token"))
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, repository.ErrNotFound) {
			abort(c, apperr.Unauthorized("Invalid token"))
			return
		}
		if err != nil {
			log.Error("auth user lookup failed", zap.String("user_id", userID.Hex()), zap.Error(err))
			abort(c, apperr.Internal("Failed to authenticate"))
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUserID returns the id JWTAuth stored on the context.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func abort(c *gin.Context, err *apperr.AppError) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"error": err.Message,
		"code":  err.Code,
	})
}
