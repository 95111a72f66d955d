package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heartline/services/users"
)

type UserHandler struct {
	users *users.Service
	log   *zap.Logger
}

func NewUserHandler(svc *users.Service, log *zap.Logger) *UserHandler {
	return &UserHandler{users: svc, log: log}
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Telephone string `json:"telephone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	sess, err := h.users.Register(c.Request.Context(), users.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Telephone: req.Telephone,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	sess, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

// Me returns the authenticated user with a renewed token.
func (h *UserHandler) Me(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	sess, err := h.users.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Authenticated user",
		"token":   sess.Token,
		"user":    sess.User,
	})
}
