package handlers

import (
	"garage_door/internal/logger"
	"garage_door/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// FeatureFlags switches whole endpoint groups off without redeploying
// clients; disabled endpoints answer 400 so pollers back off.
type FeatureFlags struct {
	RemoteButtonEnabled bool
	SnoozeEnabled       bool
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *EventHub
	flags    FeatureFlags
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, hub *EventHub, flags FeatureFlags, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, flags: flags, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// WebSocket live feed (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Device-facing endpoints: the device authenticates by knowing its
		// own build timestamp, matching the deployed firmware.
		api.POST("/checkin", h.deviceCheckIn)
		api.GET("/remote/button", h.remoteButtonPoll)

		// Unauthenticated read endpoints.
		api.GET("/events/current", h.currentEvent)
		api.GET("/events/history", h.eventHistory)
		api.GET("/snooze/status", h.snoozeStatus)

		// Key + identity protected endpoints.
		protected := api.Group("", h.pushKeyMiddleware, h.identityMiddleware)
		{
			protected.POST("/remote/push", h.remoteButtonPush)
			protected.POST("/snooze", h.snoozeSubmit)
			protected.POST("/admin/retention", h.purgeHistory)
		}
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
