// Package metrics khai báo các collector Prometheus của gateway và dedup.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kết quả của một thao tác gateway
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
)

// Kết quả của CreateIfAbsent
const (
	DedupCreated  = "created"  // caller tạo mới customer
	DedupExisting = "existing" // tìm thấy customer có sẵn
	DedupShared   = "shared"   // chờ kết quả của ticket đang chạy
	DedupFailed   = "failed"
)

var (
	// GatewayOperations đếm thao tác theo loại, collection logic và kết quả
	GatewayOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_operations_total",
		Help: "Store gateway operations by operation, collection and outcome",
	}, []string{"operation", "collection", "outcome"})

	// GatewayReadDuration đo thời gian đọc danh sách (kể cả fallback)
	GatewayReadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_read_duration_seconds",
		Help:    "Duration of getAll reads",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"collection"})

	// GatewayFallbacks đếm số lần chuyển từ truy vấn sắp xếp sang không sắp xếp
	GatewayFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_ordering_fallbacks_total",
		Help: "Ordered to unordered fallbacks by path (read, subscribe)",
	}, []string{"path", "collection"})

	// GatewayAvailable là 1 khi probe thành công, 0 khi Unavailable
	GatewayAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_store_available",
		Help: "1 when the startup probe succeeded",
	})

	// GatewaySubscriptions là số subscription đang mở
	GatewaySubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_subscriptions",
		Help: "Currently open change subscriptions",
	})

	// CustomerDedup đếm kết quả CreateIfAbsent
	CustomerDedup = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "customer_dedup_total",
		Help: "createCustomerIfAbsent outcomes",
	}, []string{"outcome"})

	// CustomerDedupInFlight là số ticket đang chờ kết quả
	CustomerDedupInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "customer_dedup_inflight_tickets",
		Help: "Dedup tickets currently in flight",
	})
)

// ObserveOperation tăng counter thao tác gateway
func ObserveOperation(operation, collection, outcome string) {
	GatewayOperations.WithLabelValues(operation, collection, outcome).Inc()
}

// ObserveRead ghi thời gian của một lần getAll
func ObserveRead(collection string, started time.Time) {
	GatewayReadDuration.WithLabelValues(collection).Observe(time.Since(started).Seconds())
}
