package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ---------- Health ----------

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "IIIT-NR Attendance Backend is running",
		"status":  "online",
		"docs":    "/api/health",
	})
}

// Health always answers 200; the per-dependency fields say what is down.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	mongoStatus := "disconnected"
	if h.mongo != nil && h.mongo.Healthy(ctx) {
		mongoStatus = "ok"
	}
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "disconnected"
		if h.redis.Healthy(ctx) {
			redisStatus = "ok"
		}
	}
	aiStatus := "unconfigured"
	if h.insights != nil {
		aiStatus = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"ai_status":      aiStatus,
		"ai_provider":    h.aiProvider,
		"mongodb_status": mongoStatus,
		"redis_status":   redisStatus,
	})
}
