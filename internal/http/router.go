package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/config"
	"github.com/jetvision/broker-backend/internal/db"
	"github.com/jetvision/broker-backend/internal/http/handlers"
	"github.com/jetvision/broker-backend/internal/http/middleware"
	"github.com/jetvision/broker-backend/internal/service"

	_ "github.com/jetvision/broker-backend/docs"
)

func Router(cfg config.Config, store *db.Store, client *avinode.Client, sync *service.SyncService, webhooks *service.WebhookService, transitions *service.TransitionService, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id", "X-User-Role"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:         store,
		Avinode:       client,
		Sync:          sync,
		Webhooks:      webhooks,
		Transitions:   transitions,
		Validator:     validator.New(),
		Logger:        logger,
		AdminKey:      cfg.AdminKey,
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.RequestsList)
		api.GET("/requests/:id", h.RequestDetails)
		api.GET("/requests/:id/actions", h.RequestActions)
		api.POST("/requests/:id/transition", h.TransitionRequest)
		api.POST("/requests/:id/sync", h.SyncRequest)
		api.POST("/requests/:id/trip", h.CreateTrip)
		api.POST("/requests/:id/message", h.SendMessage)
		api.GET("/airports/search", h.AirportSearch)
		api.GET("/notifications", h.NotificationsList)
		api.POST("/notifications/:id/read", h.NotificationRead)
	}

	r.POST("/webhooks/avinode", h.Webhook)

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/admin/webhooks/subscribe", h.SubscribeWebhook)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
