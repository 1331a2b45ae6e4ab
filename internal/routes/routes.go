package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/domain/billing"
	"github.com/publimicro/marketplace-api/internal/app/domain/listings"
	"github.com/publimicro/marketplace-api/internal/app/domain/proximity"
	"github.com/publimicro/marketplace-api/internal/app/domain/quota"
	"github.com/publimicro/marketplace-api/internal/app/middleware"
	"github.com/publimicro/marketplace-api/internal/pkg/config"
)

type AppHandlers struct {
	Proximity *proximity.Handler
	Quota     *quota.Handler
	Listings  *listings.Handler
	Billing   *billing.Handler
}

func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	handlers := setupDependencies(dbPool, cfg, log)
	setupRouter(r, handlers, dbPool, cfg, log)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) *AppHandlers {
	// Repositories
	catalogRepo := proximity.NewCatalogRepository(dbPool)
	creditsRepo := quota.NewCreditsRepository(dbPool)
	subscriptionRepo := billing.NewSubscriptionRepository(dbPool)
	listingsRepo := listings.NewRepository(dbPool)

	// Services
	proximityService := proximity.NewService(catalogRepo, log)
	quotaService := quota.NewService(subscriptionRepo, creditsRepo, nil, log)
	stripeProvider := billing.NewStripeProvider(cfg.Stripe.APIKey)
	billingService := billing.NewService(subscriptionRepo, stripeProvider, cfg.Stripe.PriceIDs, log)
	listingsService := listings.NewService(listingsRepo, quotaService, proximityService, log)

	return &AppHandlers{
		Proximity: proximity.NewHandler(proximityService, log),
		Quota:     quota.NewHandler(quotaService, log),
		Listings:  listings.NewHandler(listingsService, log),
		Billing:   billing.NewHandler(billingService, cfg.Stripe.WebhookSecret, log),
	}
}

func setupRouter(r *gin.Engine, handlers *AppHandlers, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	r.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := middleware.JWTAuthMiddleware(middleware.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Logger:    log,
	})
	authOptional := middleware.JWTAuthMiddleware(middleware.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Logger:    log,
		Optional:  true,
	})

	api := r.Group("/api/v1")
	{
		// Public reads
		api.GET("/proximity", handlers.Proximity.Enrich)
		api.GET("/listings", authOptional, handlers.Listings.Search)
		api.GET("/listings/:id", authOptional, handlers.Listings.Get)

		// Authenticated
		api.GET("/quota", authRequired, handlers.Quota.Check)
		api.POST("/listings", authRequired, handlers.Listings.Create)
		api.POST("/listings/reenrich", authRequired, handlers.Listings.Reenrich)

		billingGroup := api.Group("/billing")
		{
			billingGroup.POST("/subscribe", authRequired, handlers.Billing.Subscribe)
			billingGroup.POST("/cancel", authRequired, handlers.Billing.Cancel)
			// Stripe signs the webhook itself; no JWT here.
			billingGroup.POST("/webhook", handlers.Billing.Webhook)
		}
	}
}
