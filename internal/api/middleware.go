package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"magick-workers/internal/common/errors"
	"magick-workers/internal/common/logger"
	"magick-workers/internal/common/metrics"
)

// ErrorHandlerMiddleware renders the last error a handler attached with
// c.Error. StandardErrors keep their code; anything else is a 500.
func ErrorHandlerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		stdErr := errors.AsStandard(c.Errors.Last().Err)
		status := errors.HTTPStatus(stdErr.Code)
		if status >= 500 {
			log.Error("request failed", map[string]interface{}{
				"path":      c.FullPath(),
				"errorCode": string(stdErr.Code),
				"details":   stdErr.Details,
			})
		}

		body := envelope{Success: false, Message: stdErr.Message, Code: string(stdErr.Code)}
		if status < 500 {
			body.Details = stdErr.Details
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// MetricsMiddleware records request counts and latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
