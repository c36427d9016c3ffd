// Package router đăng ký các route của store gateway: /system/health và /collections.
package router

import (
	"time"

	"github.com/gofiber/fiber/v3"

	gwhdl "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/handler"
	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/middleware"
	apirouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/router"
)

// slowRequest: ngưỡng ghi warn vào performance log
const slowRequest = time.Second

// NewRegister trả về hàm đăng ký route gateway lên v1
func NewRegister(gw *gwsvc.Gateway) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		h := gwhdl.NewGatewayHandler(gw)

		// GET /system/health
		apirouter.RegisterRouteWithMiddleware(v1, "/system", fiber.MethodGet, "/health", nil, h.HandleHealth)

		perf := middleware.PerformanceMiddleware("gateway", slowRequest)
		apirouter.RegisterGroupWithMiddleware(v1, "/collections", []fiber.Handler{perf}, []apirouter.Route{
			{Method: fiber.MethodGet, Path: "/", Handler: h.HandleListCollections},
			{Method: fiber.MethodGet, Path: "/:collection", Handler: h.HandleGetAll},
			{Method: fiber.MethodPost, Path: "/:collection", Handler: h.HandleCreate},
			// stream đứng trước /:id để không bị hiểu là id "stream"
			{Method: fiber.MethodGet, Path: "/:collection/stream", Handler: h.HandleStream},
			{Method: fiber.MethodGet, Path: "/:collection/:id", Handler: h.HandleGetOne},
			{Method: fiber.MethodPut, Path: "/:collection/:id", Handler: h.HandleUpdate},
			{Method: fiber.MethodDelete, Path: "/:collection/:id", Handler: h.HandleDelete},
		})
		return nil
	}
}
