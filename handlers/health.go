package handlers

import (
	"net/http"

	"gearshare/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency health snapshot. It answers 503
// when a dependency was unreachable at the last check.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "message": "Hi, I'm gearshare"})
}
