package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"heartline/apperr"
	"heartline/handlers"
	"heartline/middleware"
)

type Deps struct {
	Log            *zap.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.IPRateLimiter
	Tokens         middleware.TokenVerifier
	Users          middleware.UserLookup

	UserHandler      *handlers.UserHandler
	ProfileHandler   *handlers.ProfileHandler
	MessagingHandler *handlers.MessagingHandler
	AvatarHandler    *handlers.AvatarHandler
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(d.Log),
		middleware.AccessLog(d.Log),
		middleware.Metrics(),
	)

	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Heartline API is running",
			"time":    time.Now().Unix(),
		})
	}
	router.GET("/", health)
	router.GET("/health", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	if d.RateLimiter != nil {
		api.Use(middleware.RateLimit(d.RateLimiter))
	}
	authed := middleware.JWTAuth(d.Tokens, d.Users, d.Log)

	users := api.Group("/users")
	users.POST("/register", d.UserHandler.Register)
	users.POST("/login", d.UserHandler.Login)
	users.GET("/me", authed, d.UserHandler.Me)
	users.GET("/:id", d.UserHandler.GetUser)
	users.DELETE("/:id", authed, d.UserHandler.DeleteUser)

	profile := api.Group("/profile", authed)
	profile.POST("/create", d.ProfileHandler.Create)
	profile.GET("/me", d.ProfileHandler.Me)
	profile.GET("/all", d.ProfileHandler.All)
	profile.GET("/:id", d.ProfileHandler.Get)
	profile.PUT("/update/:id", d.ProfileHandler.Update)

	messaging := api.Group("/messaging", authed)
	messaging.GET("/conversations", d.MessagingHandler.Conversations)
	messaging.POST("/conversations/with/:otherUserId", d.MessagingHandler.ConversationWith)
	messaging.POST("/conversations/:conversationId/read", d.MessagingHandler.MarkRead)
	messaging.GET("/messages/in/:conversationId", d.MessagingHandler.Messages)
	messaging.POST("/messages/in/:conversationId", d.MessagingHandler.SendMessage)

	avatar := api.Group("/avatar", authed)
	avatar.POST("/me/avatar/presign", d.AvatarHandler.Presign)
	avatar.POST("/me/avatar/confirm", d.AvatarHandler.Confirm)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"code":  apperr.CodeNotFound,
			"path":  c.Request.URL.Path,
		})
	})

	return router
}
