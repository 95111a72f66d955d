package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heartline/services/avatars"
)

type AvatarHandler struct {
	avatars *avatars.Service
	log     *zap.Logger
}

func NewAvatarHandler(svc *avatars.Service, log *zap.Logger) *AvatarHandler {
	return &AvatarHandler{avatars: svc, log: log}
}

type PresignAvatarRequest struct {
	Mime   string `json:"mime"`
	Bucket string `json:"bucket"`
}

type ConfirmAvatarRequest struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (h *AvatarHandler) Presign(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req PresignAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "mime and bucket are required")
		return
	}

	upload, err := h.avatars.Presign(c.Request.Context(), id, req.Mime, req.Bucket)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *AvatarHandler) Confirm(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req ConfirmAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "key and url are required")
		return
	}

	profile, err := h.avatars.Confirm(c.Request.Context(), id, req.Key, req.URL)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avatar saved", "profile": profile})
}
