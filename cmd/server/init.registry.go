package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/events"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/global"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
)

// InitRegistry ghi log bảng collection và tạo index createdAt khi backend là MongoDB
func InitRegistry() {
	for logical, physical := range registry.Collections.Snapshot() {
		logrus.WithFields(logrus.Fields{
			"logical":  logical,
			"physical": physical,
		}).Debug("Collection registered")
	}
	logrus.Infof("Initialized collection registry (%d collections)", registry.Collections.Len())

	if ms, ok := global.Store.(*database.MongoStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := database.EnsureCreatedAtIndexes(ctx, ms.Database(), physicalCollections()); err != nil {
			// Thiếu index chỉ làm truy vấn có sắp xếp bị từ chối, gateway sẽ tự fallback
			logrus.WithError(err).Warn("Failed to ensure createdAt indexes")
		} else {
			logrus.Info("Ensured createdAt indexes")
		}
	}
}

// physicalCollections trả về tên vật lý của mọi collection logic
func physicalCollections() []string {
	var names []string
	for _, logical := range registry.AllCollections() {
		if physical, err := registry.ResolveCollection(logical); err == nil {
			names = append(names, physical)
		}
	}
	return names
}

// InitAuditLog ghi mọi thay đổi dữ liệu qua gateway vào audit log
func InitAuditLog() (unsubscribe func()) {
	audit := logger.GetAuditLogger()
	return events.OnDataChanged(func(ctx context.Context, e events.DataChangeEvent) {
		audit.WithFields(logrus.Fields{
			"collection": e.CollectionName,
			"operation":  e.Operation,
			"id":         e.DocumentID,
		}).Info("Data changed")
	})
}
