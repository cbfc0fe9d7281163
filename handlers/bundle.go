package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers mounted by routes.RegisterRoutes.
type HandlerBundle struct {
	Triggers *TriggerHandler

	// Deliveries allowed per trigger per minute; zero disables limiting.
	MaxRequestsPerMin int

	// Health and metrics endpoints.
	HealthHandler  gin.HandlerFunc
	MetricsHandler http.Handler
}
