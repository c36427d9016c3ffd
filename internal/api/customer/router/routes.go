// Package router đăng ký route /customers.
package router

import (
	"time"

	"github.com/gofiber/fiber/v3"

	custhdl "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/handler"
	custsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/middleware"
	apirouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/router"
)

// NewRegister trả về hàm đăng ký route customer lên v1
func NewRegister(coord *custsvc.DedupCoordinator) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		h := custhdl.NewCustomerHandler(coord)

		// POST /customers/ensure
		perf := middleware.PerformanceMiddleware("customer", 2*time.Second)
		apirouter.RegisterRouteWithMiddleware(v1, "/customers", fiber.MethodPost, "/ensure", []fiber.Handler{perf}, h.HandleEnsure)
		return nil
	}
}
