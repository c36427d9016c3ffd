package main

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custrouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/router"
	custsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/service"
	gwrouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/router"
	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/middleware"
	apirouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/router"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// InitFiberApp khởi tạo ứng dụng Fiber với các middleware cần thiết
func InitFiberApp(gw *gwsvc.Gateway, coord *custsvc.DedupCoordinator) (*fiber.App, error) {
	cfg := global.ServerConfig

	app := fiber.New(fiber.Config{
		// =========================================
		// 1. CẤU HÌNH CƠ BẢN
		// =========================================
		AppName:       "FireflyNexus Store Gateway",
		ServerHeader:  "FireflyNexus",
		StrictRouting: false, // /collections và /collections/ là như nhau
		CaseSensitive: true,  // tên collection logic phân biệt hoa thường

		// =========================================
		// 2. CẤU HÌNH PERFORMANCE & TIMEOUT
		// =========================================
		BodyLimit:   4 * 1024 * 1024,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout để 0: luồng SSE giữ kết nối lâu
		IdleTimeout: 120 * time.Second,

		// =========================================
		// 3. CẤU HÌNH ERROR HANDLING
		// =========================================
		ErrorHandler: middleware.HandleErrorResponse,
	})

	// =========================================
	// MIDDLEWARE STACK
	// =========================================

	// 1. Request ID Middleware
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// 2. CORS Middleware
	allowOrigins := []string{"*"}
	if cfg.CORS_Origins != "*" {
		allowOrigins = strings.Split(cfg.CORS_Origins, ",")
		for i, origin := range allowOrigins {
			allowOrigins[i] = strings.TrimSpace(origin)
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		AllowCredentials: cfg.CORS_AllowCredentials,
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		MaxAge:           24 * 60 * 60,
	}))

	// 3. Rate Limiting Middleware - bỏ qua health, metrics và luồng SSE
	if cfg.RateLimit_Enabled && cfg.RateLimit_Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit_Max,
			Expiration: time.Duration(cfg.RateLimit_Window) * time.Second,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(common.StatusTooManyRequests).JSON(fiber.Map{
					"code":    common.ErrCodeRateLimited.Code,
					"message": "Quá nhiều yêu cầu, vui lòng thử lại sau",
					"status":  "error",
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/metrics" ||
					c.Path() == "/api/v1/system/health" ||
					strings.HasSuffix(c.Path(), "/stream") ||
					c.Method() == fiber.MethodOptions
			},
		}))
		logger.GetAppLogger().Infof("Rate limiting enabled: %d requests per %d seconds", cfg.RateLimit_Max, cfg.RateLimit_Window)
	} else {
		logger.GetAppLogger().Info("Rate limiting disabled")
	}

	// 4. Recover Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			logger.WithRequest(c).WithField("panic", e).Error("Panic recovered")
		},
	}))

	// /metrics nằm ngoài /api/v1
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if err := apirouter.SetupRoutes(app,
		gwrouter.NewRegister(gw),
		custrouter.NewRegister(coord),
	); err != nil {
		return nil, err
	}
	return app, nil
}
