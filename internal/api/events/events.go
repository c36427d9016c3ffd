// Package events cung cấp cơ chế phát sự kiện khi dữ liệu thay đổi.
// Gateway phát sự kiện sau mỗi thao tác ghi thành công; MemoryStore dùng Bus
// riêng để đánh thức các watcher.
package events

import (
	"context"
	"sync"
)

// OpInsert, OpUpdate, OpDelete là các loại thao tác ghi.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// DataChangeEvent mô tả sự kiện thay đổi dữ liệu.
// Document là bản ghi đã ghi (nil nếu delete).
type DataChangeEvent struct {
	CollectionName string
	Operation      string
	DocumentID     string
	Document       map[string]interface{}
}

// DataChangeHandler xử lý sự kiện thay đổi dữ liệu.
type DataChangeHandler func(ctx context.Context, e DataChangeEvent)

// Bus là danh sách handler có thể đăng ký / huỷ đăng ký
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]DataChangeHandler
}

// NewBus tạo bus rỗng
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]DataChangeHandler)}
}

// Subscribe đăng ký handler, trả về hàm huỷ đăng ký (gọi nhiều lần vẫn an toàn)
func (b *Bus) Subscribe(h DataChangeHandler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Len trả về số handler đang đăng ký
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Emit gọi lần lượt các handler trên goroutine hiện tại.
// Handler phải không block; panic được recover để không ảnh hưởng handler khác.
func (b *Bus) Emit(ctx context.Context, e DataChangeEvent) {
	b.mu.RLock()
	list := make([]DataChangeHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		list = append(list, h)
	}
	b.mu.RUnlock()

	for _, h := range list {
		func() {
			defer func() { _ = recover() }()
			h(ctx, e)
		}()
	}
}

var defaultBus = NewBus()

// OnDataChanged đăng ký handler toàn cục. Gọi khi init (ví dụ audit log).
func OnDataChanged(h DataChangeHandler) (unsubscribe func()) {
	return defaultBus.Subscribe(h)
}

// EmitDataChanged phát sự kiện toàn cục sau mỗi thao tác ghi thành công.
// Mỗi handler chạy trong goroutine riêng để không làm chậm request.
func EmitDataChanged(ctx context.Context, e DataChangeEvent) {
	defaultBus.mu.RLock()
	list := make([]DataChangeHandler, 0, len(defaultBus.handlers))
	for _, h := range defaultBus.handlers {
		list = append(list, h)
	}
	defaultBus.mu.RUnlock()

	for _, h := range list {
		go func(fn DataChangeHandler) {
			defer func() {
				// Logger có thể chưa init khi event chạy sớm
				_ = recover()
			}()
			fn(ctx, e)
		}(h)
	}
}
