package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/middleware"
)

// respondError writes err as {"error", "code"}. Expected failures carry their
// own message; anything else is logged and reported as a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.CodeInternal, "Internal server error", err)
	}

	status := apperr.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": apperr.CodeInvalidArgument})
}

// callerID is the authenticated user's id. Routes that call it sit behind
// JWTAuth, so a missing id means the router is miswired.
func callerID(c *gin.Context, log *zap.Logger) (primitive.ObjectID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, log, apperr.Unauthorized("Authentication required"))
		return primitive.NilObjectID, false
	}
	return id, true
}
