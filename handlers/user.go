package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User found", "user": user})
}

// DeleteUser removes the caller's own account along with their profile.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	user, err := h.users.Delete(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully", "user": user})
}
