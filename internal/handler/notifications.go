package handler

import (
	"net/http"
	"strconv"

	"oficina/internal/apierror"
	"oficina/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ReplayNotifications godoc
// @Summary Requeues dead-lettered notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum jobs to requeue (default 100)"
// @Success 200 {object} map[string]int
// @Router /v1/notifications/dlq/replay [post]
func ReplayNotifications(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, apierror.New("notification queue unavailable"))
			return
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, apierror.New("invalid limit"))
				return
			}
			limit = n
		}
		n, err := worker.ReplayDLQ(c.Request.Context(), rdb, worker.QueueNotifications, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		log.Info().Int("replayed", n).Msg("notification dead letters requeued")
		c.JSON(http.StatusOK, gin.H{"replayed": n})
	}
}
