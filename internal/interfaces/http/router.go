// Package http wires the application together behind a gin engine: it builds
// repositories, services and use cases from their infrastructure dependencies
// and registers the route table.
package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	billingUsecases "formlens/internal/application/billing/usecases"
	meteringServices "formlens/internal/application/metering/services"
	meteringUsecases "formlens/internal/application/metering/usecases"
	teamUsecases "formlens/internal/application/team/usecases"
	"formlens/internal/infrastructure/billingprovider"
	"formlens/internal/infrastructure/cache"
	"formlens/internal/infrastructure/config"
	"formlens/internal/infrastructure/email"
	"formlens/internal/infrastructure/repository"
	"formlens/internal/infrastructure/scheduler"
	"formlens/internal/interfaces/http/handlers"
	"formlens/internal/interfaces/http/middleware"
	"formlens/internal/shared/logger"
)

// Router holds the gin engine and the long-lived components that need
// explicit shutdown.
type Router struct {
	engine    *gin.Engine
	scheduler *scheduler.SchedulerManager
	redis     *redis.Client
	logger    logger.Interface

	webhookHandler *handlers.WebhookHandler
	usageHandler   *handlers.UsageHandler
	planHandler    *handlers.PlanHandler
	teamHandler    *handlers.TeamHandler
}

// NewRouter creates a new HTTP router with all dependencies wired.
func NewRouter(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Router, error) {
	if cfg.Server.Mode == "release" || cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger(log))

	redisClient, err := initRedis(cfg, log)
	if err != nil {
		return nil, err
	}

	// Repositories
	teamRepo := repository.NewTeamRepository(db, log)
	planRepo := repository.NewPlanRepository(db, log)
	subscriptionRepo := repository.NewSubscriptionRepository(db, log)
	usageStore := repository.NewUsageCounterRepository(db, log)
	webhookRepo := repository.NewWebhookEventRepository(db, log)

	// Infrastructure services
	entitlementCache := cache.NewRedisEntitlementCache(redisClient, log)
	verifier := billingprovider.NewSignatureVerifier(cfg.Billing.WebhookSecret)
	var notifier email.BillingNotifier
	if cfg.Email.SMTPHost != "" {
		notifier = email.NewSMTPEmailService(cfg.Email)
	}

	// Application services and use cases
	entitlements := meteringServices.NewEntitlementService(subscriptionRepo, planRepo, entitlementCache, log)

	tryConsumeUC := meteringUsecases.NewTryConsumeUseCase(teamRepo, entitlements, usageStore, log)
	snapshotUC := meteringUsecases.NewGetUsageSnapshotUseCase(teamRepo, entitlements, usageStore, log)
	ingestUC := billingUsecases.NewIngestWebhookUseCase(
		subscriptionRepo, planRepo, webhookRepo, verifier, entitlements, usageStore, notifier, log)
	createSubscriptionUC := billingUsecases.NewCreateSubscriptionUseCase(subscriptionRepo, planRepo, teamRepo, log)
	getPublicPlansUC := billingUsecases.NewGetPublicPlansUseCase(planRepo)
	createTeamUC := teamUsecases.NewCreateTeamUseCase(teamRepo, log)
	getTeamUC := teamUsecases.NewGetTeamUseCase(teamRepo)

	// Background jobs
	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sweepUC := billingUsecases.NewSweepCancellationsUseCase(subscriptionRepo, entitlements, log)
	purgeUC := billingUsecases.NewPurgeWebhookEventsUseCase(webhookRepo, cfg.Billing.WebhookRetentionDays, log)
	sweepInterval := time.Duration(cfg.Billing.SweepIntervalMinutes) * time.Minute
	if err := schedulerManager.RegisterBillingJobs(sweepUC, sweepInterval); err != nil {
		return nil, fmt.Errorf("failed to register billing jobs: %w", err)
	}
	if err := schedulerManager.RegisterRetentionJobs(purgeUC); err != nil {
		return nil, fmt.Errorf("failed to register retention jobs: %w", err)
	}

	r := &Router{
		engine:         engine,
		scheduler:      schedulerManager,
		redis:          redisClient,
		logger:         log,
		webhookHandler: handlers.NewWebhookHandler(ingestUC),
		usageHandler:   handlers.NewUsageHandler(tryConsumeUC, snapshotUC),
		planHandler:    handlers.NewPlanHandler(getPublicPlansUC),
		teamHandler:    handlers.NewTeamHandler(createTeamUC, getTeamUC, createSubscriptionUC),
	}
	r.setupRoutes()
	return r, nil
}

// initRedis creates and tests the Redis client connection.
func initRedis(cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("redis connection established")

	return redisClient, nil
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// StartJobs starts the background schedulers.
func (r *Router) StartJobs() {
	r.scheduler.Start()
}

// Run starts the background jobs and the HTTP server.
func (r *Router) Run(addr string) error {
	r.StartJobs()
	return r.engine.Run(addr)
}

// Shutdown stops background jobs and releases connections.
func (r *Router) Shutdown() {
	if r.scheduler != nil {
		if err := r.scheduler.Stop(); err != nil {
			r.logger.Errorw("failed to stop scheduler", "error", err)
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.logger.Errorw("failed to close redis client", "error", err)
		}
	}
}
