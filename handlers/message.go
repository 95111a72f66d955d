package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"heartline/models"
	"heartline/services/messaging"
)

type SendMessageRequest struct {
	Text     string             `json:"text"`
	Type     models.MessageType `json:"type"`
	MediaURL string             `json:"mediaUrl"`
}

func (h *MessagingHandler) SendMessage(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Text is required")
		return
	}

	msg, err := h.messaging.SendMessage(c.Request.Context(), id, c.Param("conversationId"), messaging.SendInput{
		Text:     req.Text,
		Type:     req.Type,
		MediaURL: req.MediaURL,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *MessagingHandler) Messages(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	msgs, err := h.messaging.ListMessages(c.Request.Context(), id, c.Param("conversationId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
