package router

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================================
// ĐĂNG KÝ MIDDLEWARE THEO ROUTE (Fiber v3)
// ============================================================================
//
// Không truyền middleware trực tiếp vào router.Get(path, mw, handler): trong Fiber v3
// middleware kiểu này không được gọi. Luôn dùng RegisterRouteWithMiddleware, hàm này
// tạo group theo prefix rồi gắn middleware bằng .Use().
//
// ============================================================================

// RoutePrefix chứa các prefix cơ bản cho API
type RoutePrefix struct {
	Base string // Prefix cơ bản (/api)
	V1   string // Prefix cho API version 1 (/api/v1)
}

// NewRoutePrefix tạo mới một instance của RoutePrefix với các giá trị mặc định
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// Router giữ tham chiếu tới app để domain router có thể đăng ký route ngoài /api/v1
type Router struct {
	app *fiber.App
}

// NewRouter tạo mới một instance của Router
func NewRouter(app *fiber.App) *Router {
	return &Router{
		app: app,
	}
}

// App trả về fiber app gốc
func (r *Router) App() *fiber.App {
	return r.app
}

// RegisterRouteWithMiddleware đăng ký route với middleware sử dụng .Use() của group.
// Middleware chỉ áp dụng cho các route trong group prefix.
//
//	RegisterRouteWithMiddleware(v1, "/collections", "GET", "/:collection", []fiber.Handler{perf}, h.HandleGetAll)
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case fiber.MethodGet:
		routeGroup.Get(path, handler)
	case fiber.MethodPost:
		routeGroup.Post(path, handler)
	case fiber.MethodPut:
		routeGroup.Put(path, handler)
	case fiber.MethodDelete:
		routeGroup.Delete(path, handler)
	}
}

// Route mô tả một route trong group
type Route struct {
	Method  string
	Path    string
	Handler fiber.Handler
}

// RegisterGroupWithMiddleware đăng ký nhiều route dưới cùng prefix, middleware gắn một lần cho cả group.
// Thứ tự route được giữ nguyên: route tĩnh (/:collection/stream) phải đứng trước route tham số (/:collection/:id).
func RegisterGroupWithMiddleware(router fiber.Router, prefix string, middlewares []fiber.Handler, routes []Route) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}
	for _, rt := range routes {
		routeGroup.Add([]string{rt.Method}, rt.Path, rt.Handler)
	}
}

// RegisterFunc là hàm đăng ký route của một domain (do domain/router export).
type RegisterFunc func(v1 fiber.Router, r *Router) error

// SetupRoutes thiết lập tất cả các route cho ứng dụng. Caller truyền lần lượt Register của từng domain để tránh import cycle.
func SetupRoutes(app *fiber.App, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	r := NewRouter(app)
	for _, reg := range regs {
		if err := reg(v1, r); err != nil {
			return err
		}
	}
	return nil
}
