package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// PerformanceMiddleware ghi thời gian xử lý của mỗi request vào performance logger.
// Request chậm hơn slowThreshold được ghi ở mức warn.
func PerformanceMiddleware(module string, slowThreshold time.Duration) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		elapsed := time.Since(started)

		entry := logger.GetPerformanceLogger().WithFields(logrus.Fields{
			"module":      module,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": elapsed.Milliseconds(),
		})
		if slowThreshold > 0 && elapsed >= slowThreshold {
			entry.Warn("Slow request")
		} else {
			entry.Debug("Request completed")
		}
		return err
	}
}
