package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retzius/attendance-api/internal/service"
)

// Metrics returns middleware that records request duration and count per
// route template. Scrape and probe endpoints are left out so they do not
// dominate the histograms.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	skipped := map[string]struct{}{
		"/metrics": {},
		"/health":  {},
		"/ready":   {},
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, skip := skipped[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
