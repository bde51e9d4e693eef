package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stefan-vatov/nightwatch-deck/internal/services"
)

// HandleMetrics returns WebSocket server metrics
func HandleMetrics(metrics *services.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	}
}

// HandleHealth returns server health status
func HandleHealth(metrics *services.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := metrics.Snapshot()

		status := http.StatusOK
		if snapshot.HealthStatus == "critical" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":             snapshot.HealthStatus,
			"active_connections": snapshot.ActiveConnections,
			"active_rooms":       snapshot.ActiveRooms,
			"uptime_seconds":     snapshot.UptimeSeconds,
		})
	}
}
