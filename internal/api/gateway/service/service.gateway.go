// Package gwsvc - Store gateway: điểm duy nhất đọc/ghi kho dữ liệu.
//
// Mọi thao tác đi qua các bước: resolve collection logic (lỗi trả về trước khi có I/O),
// kiểm tra trạng thái probe, rồi gọi DocumentStore. Gateway không tự retry; ngoại lệ duy nhất
// là một lần chuyển từ truy vấn có sắp xếp sang không sắp xếp khi store từ chối.
package gwsvc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/events"
	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/metrics"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/registry"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/utility"
)

// Giá trị mặc định của Options
const (
	DefaultReadTimeout     = 2 * time.Second
	DefaultProbeCollection = "_healthcheck"
	DefaultSettingsTTL     = 5 * time.Minute

	// probeDocumentID là id không tồn tại, probe chỉ cần store trả lời
	probeDocumentID = "__probe__"
)

// orderedByCreatedAt là thứ tự đọc mặc định: mới nhất trước
var orderedByCreatedAt = database.ListOptions{OrderBy: gwmodels.FieldCreatedAt, Descending: true}

// Options cấu hình Gateway
type Options struct {
	ReadTimeout     time.Duration    // Thời gian tối đa cho một lần getAll
	ProbeCollection string           // Collection dùng để probe
	SettingsTTL     time.Duration    // TTL cache cấu hình
	Now             func() time.Time // Đồng hồ, thay được trong test
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.ProbeCollection == "" {
		o.ProbeCollection = DefaultProbeCollection
	}
	if o.SettingsTTL <= 0 {
		o.SettingsTTL = DefaultSettingsTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type availability int

const (
	stateUnknown availability = iota
	stateAvailable
	stateUnavailable
)

// Health là trạng thái probe hiện tại của gateway
type Health struct {
	Backend   string    `json:"backend"`
	Available bool      `json:"available"`
	Probed    bool      `json:"probed"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt,omitempty"`
}

// Gateway bọc DocumentStore với probe, timeout đọc, fallback sắp xếp và chuẩn hoá lỗi
type Gateway struct {
	store database.DocumentStore
	opts  Options

	mu        sync.Mutex
	state     availability
	probeErr  error
	checkedAt time.Time

	settings *utility.Cache
}

// NewGateway tạo gateway mới. Probe chạy lười ở lần thao tác đầu tiên.
func NewGateway(store database.DocumentStore, opts Options) *Gateway {
	opts = opts.withDefaults()
	return &Gateway{
		store:    store,
		opts:     opts,
		settings: utility.NewCache(opts.SettingsTTL, opts.SettingsTTL),
	}
}

// Close dừng goroutine dọn cache. Store do caller đóng.
func (g *Gateway) Close() {
	g.settings.Stop()
}

// Backend trả về tên backend của store
func (g *Gateway) Backend() string {
	return g.store.Name()
}

// ====================================
// PROBE
// ====================================

// Probe chạy lại probe ngay lập tức và cập nhật trạng thái.
// Đây là cách duy nhất để thoát khỏi trạng thái Unavailable.
func (g *Gateway) Probe(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probeLocked(ctx)
}

// Health trả về trạng thái probe, probe lần đầu nếu chưa chạy
func (g *Gateway) Health(ctx context.Context) Health {
	_ = g.ensureAvailable(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	h := Health{
		Backend:   g.store.Name(),
		Available: g.state == stateAvailable,
		Probed:    g.state != stateUnknown,
		CheckedAt: g.checkedAt,
	}
	if g.probeErr != nil {
		h.Error = g.probeErr.Error()
	}
	return h
}

// ensureAvailable probe một lần duy nhất; Unavailable là trạng thái dính cho tới khi Probe lại
func (g *Gateway) ensureAvailable(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case stateAvailable:
		return nil
	case stateUnavailable:
		return common.StoreUnavailable(g.probeErr)
	default:
		return g.probeLocked(ctx)
	}
}

// probeLocked đọc một document không tồn tại; NotFound nghĩa là store trả lời bình thường.
// Probe không phụ thuộc vào việc caller huỷ ctx để trạng thái không bị ghi sai.
func (g *Gateway) probeLocked(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.ReadTimeout)
	defer cancel()

	_, err := g.store.Get(probeCtx, g.opts.ProbeCollection, probeDocumentID)
	if errors.Is(err, common.ErrNotFound) {
		err = nil
	}

	g.checkedAt = g.opts.Now()
	log := logger.WithModule("gateway").WithField("backend", g.store.Name())
	if err != nil {
		g.state = stateUnavailable
		g.probeErr = err
		metrics.GatewayAvailable.Set(0)
		log.WithError(err).Error("Store probe failed, gateway is unavailable")
		return common.StoreUnavailable(err)
	}

	g.state = stateAvailable
	g.probeErr = nil
	metrics.GatewayAvailable.Set(1)
	log.Info("Store probe succeeded")
	return nil
}

// ====================================
// HELPERS
// ====================================

// prepare resolve collection logic rồi kiểm tra probe. UnknownCollection không bao giờ chạm store.
func (g *Gateway) prepare(ctx context.Context, logical string) (string, error) {
	physical, err := registry.ResolveCollection(registry.LogicalCollection(logical))
	if err != nil {
		return "", err
	}
	if err := g.ensureAvailable(ctx); err != nil {
		return "", err
	}
	return physical, nil
}

// prepareWrite làm sạch record, bỏ id (id do store quản lý) và đóng dấu thời gian.
// Giá trị caller tự đặt cho createdAt/updatedAt được giữ nguyên.
func (g *Gateway) prepareWrite(record gwmodels.Record, stampCreated bool) map[string]interface{} {
	data := utility.SanitizeRecord(record)
	delete(data, gwmodels.FieldID)

	now := utility.FormatTimestamp(g.opts.Now())
	if stampCreated {
		if _, ok := data[gwmodels.FieldCreatedAt]; !ok {
			data[gwmodels.FieldCreatedAt] = now
		}
	}
	if _, ok := data[gwmodels.FieldUpdatedAt]; !ok {
		data[gwmodels.FieldUpdatedAt] = now
	}
	return data
}

func toStoredRecords(docs []database.Document) []gwmodels.StoredRecord {
	out := make([]gwmodels.StoredRecord, len(docs))
	for i, d := range docs {
		out[i] = gwmodels.StoredRecord{ID: d.ID, Data: gwmodels.Record(d.Data)}
	}
	return out
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, common.ErrReadTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, common.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// collectionLabel giữ số label metrics hữu hạn: tên không đăng ký gộp thành "unknown"
func collectionLabel(logical string) string {
	if _, ok := registry.Collections.Get(logical); ok {
		return logical
	}
	return "unknown"
}

func requireID(id string) error {
	if id == "" {
		return common.InvalidInput(map[string]string{gwmodels.FieldID: "required"})
	}
	return nil
}

// ====================================
// WRITE
// ====================================

// Create thêm record mới vào collection logic, trả về id do store cấp
func (g *Gateway) Create(ctx context.Context, logical string, record gwmodels.Record) (id string, err error) {
	defer func() { metrics.ObserveOperation("create", collectionLabel(logical), outcomeOf(err)) }()

	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return "", err
	}

	data := g.prepareWrite(record, true)
	id, err = g.store.Insert(ctx, physical, data)
	if err != nil {
		logger.WithModuleAndCollection("gateway", logical).WithError(err).Error("Create failed")
		return "", common.WriteFailed(err)
	}

	events.EmitDataChanged(context.WithoutCancel(ctx), events.DataChangeEvent{
		CollectionName: logical,
		Operation:      events.OpInsert,
		DocumentID:     id,
		Document:       data,
	})
	return id, nil
}

// Update merge record vào document id. id không tồn tại trả về WriteFailed bọc ErrNotFound.
func (g *Gateway) Update(ctx context.Context, logical, id string, record gwmodels.Record) (_ string, err error) {
	defer func() { metrics.ObserveOperation("update", collectionLabel(logical), outcomeOf(err)) }()

	if err = requireID(id); err != nil {
		return "", err
	}
	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return "", err
	}

	data := g.prepareWrite(record, false)
	if err = g.store.Update(ctx, physical, id, data); err != nil {
		logger.WithModuleAndCollection("gateway", logical).WithError(err).WithField("id", id).Warn("Update failed")
		return "", common.WriteFailed(err)
	}

	events.EmitDataChanged(context.WithoutCancel(ctx), events.DataChangeEvent{
		CollectionName: logical,
		Operation:      events.OpUpdate,
		DocumentID:     id,
		Document:       data,
	})
	return id, nil
}

// Delete xoá document; xoá id không tồn tại không phải lỗi
func (g *Gateway) Delete(ctx context.Context, logical, id string) (err error) {
	defer func() { metrics.ObserveOperation("delete", collectionLabel(logical), outcomeOf(err)) }()

	if err = requireID(id); err != nil {
		return err
	}
	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return err
	}

	if err = g.store.Delete(ctx, physical, id); err != nil {
		return common.WriteFailed(err)
	}

	events.EmitDataChanged(context.WithoutCancel(ctx), events.DataChangeEvent{
		CollectionName: logical,
		Operation:      events.OpDelete,
		DocumentID:     id,
	})
	return nil
}

// ====================================
// READ
// ====================================

// GetOne đọc một document. Không tồn tại trả về (nil, false, nil).
func (g *Gateway) GetOne(ctx context.Context, logical, id string) (_ *gwmodels.StoredRecord, found bool, err error) {
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && !found {
			outcome = metrics.OutcomeNotFound
		}
		metrics.ObserveOperation("get_one", collectionLabel(logical), outcome)
	}()

	if err = requireID(id); err != nil {
		return nil, false, err
	}
	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return nil, false, err
	}

	doc, err := g.store.Get(ctx, physical, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, common.ReadFailed(err)
	}
	return &gwmodels.StoredRecord{ID: doc.ID, Data: gwmodels.Record(doc.Data)}, true, nil
}

// GetAll đọc toàn bộ collection, mới nhất trước.
//
// Lần đọc có sắp xếp bị giới hạn bởi ReadTimeout; hết giờ trả về ReadTimeout và bỏ kết quả đến muộn.
// Nếu store từ chối truy vấn có sắp xếp, đọc lại một lần không sắp xếp (thứ tự không đảm bảo).
func (g *Gateway) GetAll(ctx context.Context, logical string) (_ []gwmodels.StoredRecord, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveOperation("get_all", collectionLabel(logical), outcomeOf(err))
		metrics.ObserveRead(collectionLabel(logical), started)
	}()

	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return nil, err
	}

	docs, err := g.readWithTimeout(ctx, logical, physical, orderedByCreatedAt)
	if errors.Is(err, common.ErrOrderedRefused) {
		logger.WithModuleAndCollection("gateway", logical).WithError(err).Warn("Ordered read refused, falling back to unordered read")
		metrics.GatewayFallbacks.WithLabelValues("read", logical).Inc()
		docs, err = g.readWithTimeout(ctx, logical, physical, database.ListOptions{})
	}
	if err != nil {
		return nil, err
	}
	return toStoredRecords(docs), nil
}

type listResult struct {
	docs []database.Document
	err  error
}

// readWithTimeout chạy List trong goroutine riêng và đua với timeout.
// Store không tôn trọng ctx vẫn bị cắt đúng hạn; kết quả đến muộn bị bỏ.
func (g *Gateway) readWithTimeout(ctx context.Context, logical, physical string, opts database.ListOptions) ([]database.Document, error) {
	readCtx, cancel := context.WithTimeout(ctx, g.opts.ReadTimeout)
	defer cancel()

	done := make(chan listResult, 1)
	go func() {
		docs, err := g.store.List(readCtx, physical, opts)
		done <- listResult{docs: docs, err: err}
	}()

	timeout := func() error {
		return common.ReadTimeout(map[string]interface{}{
			"collection": logical,
			"timeoutMs":  g.opts.ReadTimeout.Milliseconds(),
			"ordered":    opts.Ordered(),
		})
	}

	select {
	case r := <-done:
		if r.err == nil {
			return r.docs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, timeout()
		}
		if errors.Is(r.err, common.ErrOrderedRefused) {
			return nil, r.err
		}
		return nil, common.ReadFailed(r.err)
	case <-readCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WithModuleAndCollection("gateway", logical).Warn("Read timed out, discarding late result")
		return nil, timeout()
	}
}
