package handlers

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luxegen-backend/internal/middleware"
)

type RouterConfig struct {
	JWTSecret string
	Logger    *slog.Logger
	Health    *HealthHandler
	Personas  *PersonasHandler
	Campaigns *CampaignsHandler
	Studio    *StudioHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware(cfg.Logger))
	r.Use(cors.Default())

	// System endpoints (no auth)
	r.GET("/health", cfg.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.GET("/personas", cfg.Personas.ListPersonas)
	api.POST("/personas", cfg.Personas.CreatePersona)
	api.DELETE("/personas/:persona_id", cfg.Personas.DeletePersona)

	api.GET("/campaigns", cfg.Campaigns.ListCampaigns)
	api.GET("/campaigns/:campaign_id", cfg.Campaigns.GetCampaign)
	api.DELETE("/campaigns/:campaign_id", cfg.Campaigns.DeleteCampaign)
	api.POST("/campaigns/:campaign_id/images", cfg.Campaigns.AddImage)
	api.DELETE("/campaigns/:campaign_id/images/:index", cfg.Campaigns.DeleteImage)

	studio := api.Group("/studio/sessions")
	studio.POST("", cfg.Studio.CreateSession)
	studio.GET("/:session_id", cfg.Studio.GetSession)
	studio.DELETE("/:session_id", cfg.Studio.DeleteSession)
	studio.PUT("/:session_id/persona", cfg.Studio.SelectPersona)
	studio.PUT("/:session_id/product", cfg.Studio.CaptureProduct)
	studio.PUT("/:session_id/brief", cfg.Studio.CaptureBrief)
	studio.POST("/:session_id/plan", cfg.Studio.RequestPlan)
	studio.POST("/:session_id/plan/approve", cfg.Studio.ApprovePlan)
	studio.POST("/:session_id/plan/reject", cfg.Studio.RejectPlan)
	studio.POST("/:session_id/synthesize", cfg.Studio.Synthesize)
	studio.POST("/:session_id/reset", cfg.Studio.ResetSession)

	return r
}
