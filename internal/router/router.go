package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/handler"
	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roadside-assist-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roadside-assist-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Emergency *handler.EmergencyHandler
	Dispatch  *handler.DispatchHandler
	Diagnosis *handler.DiagnosisHandler
	Analytics *handler.AnalyticsHandler
	User      *handler.UserHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the cross cutting pieces of the HTTP stack.
type Options struct {
	APIPrefix      string
	EnableDocs     bool
	AllowedOrigins []string
	Logger         *zap.Logger
	Auth           middleware.TokenValidator
	Observer       middleware.RequestObserver
	// RateLimiter throttles emergency creation; nil disables throttling.
	RateLimiter *middleware.RateLimiter
}

// New builds the gin engine serving the public API.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	// signed links carry their own authorisation
	api.GET("/diagnoses/audio/:token", h.Diagnosis.Audio)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Auth))

	secured.GET("/me", h.User.Me)

	anyRole := middleware.RequireRoles(models.AllUserRoles...)
	customer := middleware.RequireRoles(models.RoleCustomer)
	admin := middleware.RequireRoles(models.RoleAdmin)
	dispatcher := middleware.RequireRoles(models.RoleAdmin, models.RoleGarageOwner)

	emergencies := secured.Group("/emergencies")
	createChain := []gin.HandlerFunc{customer}
	if opts.RateLimiter != nil {
		createChain = append(createChain, opts.RateLimiter.Middleware())
	}
	emergencies.POST("", append(createChain, h.Emergency.Create)...)
	emergencies.GET("", anyRole, h.Emergency.List)
	emergencies.GET("/nearby", dispatcher, h.Dispatch.NearbyEmergencies)
	emergencies.GET("/:id", anyRole, h.Emergency.Get)
	emergencies.PATCH("/:id/status", admin, h.Emergency.UpdateStatus)
	emergencies.POST("/:id/cancel", anyRole, h.Emergency.Cancel)
	emergencies.PUT("/:id/cost", admin, h.Emergency.RecordCost)

	garages := secured.Group("/garages")
	garages.GET("/nearby", anyRole, h.Dispatch.NearbyGarages)
	garages.GET("/:id/stats", dispatcher, h.Analytics.GarageStats)

	diagnoses := secured.Group("/diagnoses")
	diagnoses.POST("/upload", customer, h.Diagnosis.Upload)
	diagnoses.GET("", anyRole, h.Diagnosis.List)
	diagnoses.GET("/stats", admin, h.Analytics.DiagnosisStats)
	diagnoses.GET("/:id", anyRole, h.Diagnosis.Get)
	diagnoses.GET("/:id/result", anyRole, h.Diagnosis.Result)
	diagnoses.PUT("/:id/feedback", customer, h.Diagnosis.Feedback)
	diagnoses.DELETE("/:id", anyRole, h.Diagnosis.Delete)

	analytics := secured.Group("/analytics", admin)
	analytics.GET("/dashboard", h.Analytics.Dashboard)
	analytics.GET("/dashboard/export", h.Analytics.Export)
	analytics.GET("/system", h.Analytics.System)
	analytics.DELETE("/cache", h.Analytics.InvalidateCache)

	return r
}
