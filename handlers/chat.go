package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heartline/services/messaging"
)

type MessagingHandler struct {
	messaging *messaging.Service
	log       *zap.Logger
}

func NewMessagingHandler(svc *messaging.Service, log *zap.Logger) *MessagingHandler {
	return &MessagingHandler{messaging: svc, log: log}
}

type MarkReadRequest struct {
	MessageID string `json:"messageId"`
}

// ConversationWith returns the caller's conversation with another user,
// creating it on first contact.
func (h *MessagingHandler) ConversationWith(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	conv, err := h.messaging.GetOrCreateConversation(c.Request.Context(), id, c.Param("otherUserId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *MessagingHandler) Conversations(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	list, err := h.messaging.ListConversations(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (h *MessagingHandler) MarkRead(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Message ID is required")
		return
	}

	conv, err := h.messaging.MarkRead(c.Request.Context(), id, c.Param("conversationId"), req.MessageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}
