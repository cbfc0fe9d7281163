package routes

import (
	"gearshare/handlers"
	"gearshare/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterTriggerRoutes registers the event delivery endpoints.
func RegisterTriggerRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/triggers")
	{
		api.GET("", hb.Triggers.ListHandler)
		api.POST("/:name", middleware.RateLimitMiddleware(hb.MaxRequestsPerMin), hb.Triggers.InvokeHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	h := hb.HealthHandler
	if h == nil {
		h = handlers.HealthHandler
	}
	r.GET("/health", h)
}

// RegisterMetricsRoute exposes Prometheus metrics when a handler is set.
func RegisterMetricsRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.MetricsHandler == nil {
		return
	}
	r.GET("/metrics", gin.WrapH(hb.MetricsHandler))
}

// RegisterRoutes centralizes registration of all endpoints.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	RegisterTriggerRoutes(r, hb)
	RegisterHealthRoute(r, hb)
	RegisterMetricsRoute(r, hb)
}
