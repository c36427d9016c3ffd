package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	custsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/customer/service"
	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
)

// shutdownTimeout: thời gian chờ request đang chạy khi tắt server
const shutdownTimeout = 10 * time.Second

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc biến môi trường LOG_* để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// newGateway tạo store gateway từ cấu hình server
func newGateway() *gwsvc.Gateway {
	cfg := global.ServerConfig
	return gwsvc.NewGateway(global.Store, gwsvc.Options{
		ReadTimeout:     cfg.ReadTimeout(),
		ProbeCollection: cfg.Store_ProbeCollection,
		SettingsTTL:     cfg.SettingsTTL(),
	})
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()
	defer logger.Close()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()

	gw := newGateway()
	coord := custsvc.NewDedupCoordinator(gw)
	stopAudit := InitAuditLog()

	app, err := InitFiberApp(gw, coord)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// Probe sớm để log trạng thái store ngay khi khởi động; lỗi không chặn server
	health := gw.Health(context.Background())
	log.WithField("available", health.Available).WithField("backend", health.Backend).Info("Store probed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := ":" + global.ServerConfig.Address
	listenErr := make(chan error, 1)
	go func() {
		log.WithField("address", address).Info("Starting Fiber server")
		listenErr <- app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			log.WithError(err).Error("Error in Fiber Listen")
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.WithError(err).Warn("Fiber shutdown did not finish cleanly")
	}

	stopAudit()
	gw.Close()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := global.Store.Close(closeCtx); err != nil {
		log.WithError(err).Warn("Failed to close store")
	}
	log.Info("Server stopped")
}
