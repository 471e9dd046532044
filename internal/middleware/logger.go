package middleware

import (
	"time"

	"cmsbackend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request and records its latency
func RequestLogger(log logrus.FieldLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		m.Request(c.Request.Method, c.FullPath(), status, elapsed)

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"route":   c.FullPath(),
			"status":  status,
			"latency": elapsed.String(),
			"ip":      c.ClientIP(),
		})
		if id, ok := c.Get(ContextUserID); ok {
			entry = entry.WithField("userId", id)
		}
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
