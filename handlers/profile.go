package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heartline/models"
	"heartline/services/profiles"
)

type ProfileHandler struct {
	profiles *profiles.Service
	log      *zap.Logger
}

func NewProfileHandler(svc *profiles.Service, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: svc, log: log}
}

type CreateProfileRequest struct {
	Name      string   `json:"name"`
	Age       *int     `json:"age"`
	Gender    string   `json:"gender"`
	Location  string   `json:"location"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
	Images    []string `json:"images"`
}

// UpdateProfileRequest fields left out of the body are not changed.
type UpdateProfileRequest struct {
	Name      *string  `json:"name"`
	Age       *int     `json:"age"`
	Gender    *string  `json:"gender"`
	Location  *string  `json:"location"`
	Bio       *string  `json:"bio"`
	Interests []string `json:"interests"`
	Images    []string `json:"images"`
}

func (h *ProfileHandler) Create(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid profile payload")
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), id, profiles.CreateInput{
		Name:      req.Name,
		Age:       req.Age,
		Gender:    req.Gender,
		Location:  req.Location,
		Bio:       req.Bio,
		Interests: req.Interests,
		Images:    req.Images,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Profile created successfully", "profile": profile})
}

func (h *ProfileHandler) Me(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	profile, err := h.profiles.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile found", "profile": profile})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile found", "profile": profile})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := callerID(c, h.log)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid profile payload")
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), id, c.Param("id"), models.ProfileUpdate{
		Name:      req.Name,
		Age:       req.Age,
		Gender:    req.Gender,
		Location:  req.Location,
		Bio:       req.Bio,
		Interests: req.Interests,
		Images:    req.Images,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "profile": profile})
}

func (h *ProfileHandler) All(c *gin.Context) {
	list, err := h.profiles.All(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}
