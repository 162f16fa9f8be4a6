package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/outloudvi/mail-list-rss/internal/monitoring"
)

// HTTPMetrics HTTP 指标中间件。
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
