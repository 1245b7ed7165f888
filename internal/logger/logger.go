// Package logger configures the process-wide logrus logger and the gin request logger.
package logger

import (
	"time" // Request latency

	"rewards_system/internal/config" // Log level and environment

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// Setup configures the standard logrus logger: JSON in production, full-timestamp text otherwise
func Setup(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel // Unknown names fall back to info
		logrus.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	logrus.SetLevel(level)
}

// Gin logs one line per request with the authenticated account when there is one
func Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start
		c.Next()            // Process request
		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if id, ok := c.Get("accountID"); ok {
			fields["account_id"] = id
		}
		entry := logrus.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}
