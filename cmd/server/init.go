package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
)

// storeOpenTimeout: thời gian tối đa để kết nối backend khi khởi động
const storeOpenTimeout = 30 * time.Second

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initValidator() // Khởi tạo validator
	initConfig()    // Khởi tạo cấu hình server
	initStore()     // Khởi tạo kết nối store theo STORE_BACKEND
}

// Hàm khởi tạo validator (global.InitValidator đăng ký custom validator notblank)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to read config: %v", err)
	}
	global.ServerConfig = cfg
	logrus.WithFields(logrus.Fields{
		"address": cfg.Address,
		"backend": cfg.StoreBackend,
	}).Info("Initialized server config")
}

// Hàm khởi tạo store
func initStore() {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	store, err := database.OpenStore(ctx, global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to open %s store: %v", global.ServerConfig.StoreBackend, err)
	}
	global.Store = store
	logrus.Infof("Initialized %s store", store.Name())
}
