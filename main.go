package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heartline/auth"
	"heartline/config"
	"heartline/database"
	"heartline/handlers"
	"heartline/logger"
	"heartline/middleware"
	"heartline/repository"
	"heartline/routes"
	"heartline/services/avatars"
	"heartline/services/messaging"
	"heartline/services/profiles"
	"heartline/services/users"
	"heartline/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("starting heartline api", zap.String("env", cfg.Env))

	db := database.New(cfg.Mongo, log.Named("database"))

	// The connection is lazy; a database that is down at start-up only
	// delays index creation until the next restart.
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout+5*time.Second)
	if err := db.EnsureIndexes(indexCtx); err != nil {
		log.Warn("could not ensure mongodb indexes", zap.Error(err))
	}
	cancelIndexes()

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal("failed to configure object storage", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userSvc := users.NewService(userRepo, profileRepo, tokens, log.Named("users"))
	profileSvc := profiles.NewService(profileRepo, log.Named("profiles"))
	messagingSvc := messaging.NewService(conversationRepo, messageRepo, userRepo, log.Named("messaging"))
	avatarSvc := avatars.NewService(store, profileRepo, cfg.Storage.UploadURLTTL, log.Named("avatars"))

	if cfg.HTTP.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := routes.SetupRouter(routes.Deps{
		Log:              log.Named("http"),
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		RateLimiter:      middleware.NewIPRateLimiter(cfg.HTTP.RateLimitPerMinute),
		Tokens:           tokens,
		Users:            userRepo,
		UserHandler:      handlers.NewUserHandler(userSvc, log.Named("users")),
		ProfileHandler:   handlers.NewProfileHandler(profileSvc, log.Named("profiles")),
		MessagingHandler: handlers.NewMessagingHandler(messagingSvc, log.Named("messaging")),
		AvatarHandler:    handlers.NewAvatarHandler(avatarSvc, log.Named("avatars")),
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Error("mongodb disconnect failed", zap.Error(err))
	}

	log.Info("server stopped")
}
