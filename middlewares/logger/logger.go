package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/utils/jwt_parse"
	"github.com/sirupsen/logrus"
)

// GinLogger logs one structured line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/favicon.ico" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":      c.Writer.Status(),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID, ok := c.Get(jwt_parse.ContextUserID); ok {
			fields["user_id"] = userID
			fields["username"] = c.GetString(jwt_parse.ContextUsername)
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.ErrorLogger.WithFields(fields).Error("request failed")
		case status >= 400:
			logger.WarnLogger.WithFields(fields).Warn("request rejected")
		default:
			logger.InfoLogger.WithFields(fields).Info("request served")
		}
	}
}
