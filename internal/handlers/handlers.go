package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"promptpix/api/internal/config"
	"promptpix/api/internal/generation"
	"promptpix/api/internal/middleware"
	"promptpix/api/internal/models"
	"promptpix/api/internal/quota"
	"promptpix/api/internal/repository"
	"promptpix/api/internal/service"
	"promptpix/api/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	pipeline    pipelineRunner
	artifacts   *service.ArtifactService
	quota       *quota.Tracker
	db          *pgxpool.Pool
	cache       *redis.Client
	users       *repository.UserRepository
	sessions    *repository.SessionRepository
	records     *repository.ArtifactRepository
}

// pipelineRunner lets handler tests stub the pipeline.
type pipelineRunner interface {
	Run(ctx context.Context, identity models.Identity, req models.GenerationRequest, listener service.StateListener) (service.Outcome, error)
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	store *storage.ObjectStore,
	generator generation.Generator,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	auth := service.NewAuthService(userRepo, sessionRepo, cfg, log)
	artifacts := service.NewArtifactService(artifactRepo, store, cfg, log)
	tracker := quota.NewTracker(quota.NewMemoryStore(), quota.NewRedisStore(cache), cfg.Quota)
	pipe := service.NewPipelineService(generator, tracker, artifacts, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		pipeline:    pipe,
		artifacts:   artifacts,
		quota:       tracker,
		db:          db,
		cache:       cache,
		users:       userRepo,
		sessions:    sessionRepo,
		records:     artifactRepo,
	}
}

func (h HandlerSet) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		protected.GET("/me", h.Me)

		images := v1.Group("/images")
		images.Use(middleware.Identity(h.cfg, h.users, h.sessions))
		images.POST("/generate", h.GenerateImage)
		images.POST("/edit", h.EditImage)

		quotaGroup := v1.Group("/quota")
		quotaGroup.Use(middleware.Identity(h.cfg, h.users, h.sessions))
		quotaGroup.GET("", h.QuotaState)

		gallery := v1.Group("/gallery")
		gallery.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		gallery.GET("", h.ListGallery)
		gallery.DELETE("/:id", h.DeleteArtifact)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg, h.users, h.sessions),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.GET("/artifacts", h.AdminListArtifacts)
	}
}
