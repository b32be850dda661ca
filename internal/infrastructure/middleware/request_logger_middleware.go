package middleware

import (
	"time"

	"dataplug/internal/infrastructure/monitoring"
	"dataplug/pkg/logger"
	"dataplug/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates or assigns a request id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = utils.GenerateRequestID()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLoggerMiddleware logs every request and records HTTP metrics when
// a collector is given.
func RequestLoggerMiddleware(log *zap.SugaredLogger, collector *monitoring.PrometheusCollector) gin.HandlerFunc {
	ctxLog := logger.NewContextLogger(log)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		ctxLog.LogRequest(c.Request.Context(), c.Request.Method, route, status, duration.Milliseconds())
		if collector != nil {
			collector.RecordHTTPRequest(c.Request.Method, route, status, duration)
		}
	}
}
