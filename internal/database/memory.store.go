package database

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/events"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
)

type memoryDoc struct {
	seq  uint64
	data map[string]interface{}
}

// MemoryStore là DocumentStore trong bộ nhớ tiến trình, dùng cho môi trường dev và test.
// Dữ liệu mất khi tiến trình dừng.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         uint64
	collections map[string]map[string]memoryDoc
	bus         *events.Bus
}

// NewMemoryStore tạo store rỗng
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]memoryDoc),
		bus:         events.NewBus(),
	}
}

// Name trả về "memory"
func (s *MemoryStore) Name() string { return "memory" }

// Insert thêm document với id uuid ngẫu nhiên
func (s *MemoryStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]memoryDoc)
		s.collections[collection] = docs
	}
	s.seq++
	docs[id] = memoryDoc{seq: s.seq, data: cloneMap(data)}
	s.mu.Unlock()

	s.bus.Emit(ctx, events.DataChangeEvent{CollectionName: collection, Operation: events.OpInsert, DocumentID: id})
	return id, nil
}

// Update merge các field cấp một
func (s *MemoryStore) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return common.ErrNotFound
	}
	merged := cloneMap(doc.data)
	for k, v := range data {
		merged[k] = cloneValue(v)
	}
	doc.data = merged
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.bus.Emit(ctx, events.DataChangeEvent{CollectionName: collection, Operation: events.OpUpdate, DocumentID: id})
	return nil
}

// Get đọc bản sao của document
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &Document{ID: id, Data: cloneMap(doc.data)}, nil
}

// Delete xoá document nếu có
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if existed {
		s.bus.Emit(ctx, events.DataChangeEvent{CollectionName: collection, Operation: events.OpDelete, DocumentID: id})
	}
	return nil
}

// List trả về document theo thứ tự chèn, hoặc theo opts nếu có sắp xếp
func (s *MemoryStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	type entry struct {
		seq uint64
		doc Document
	}
	entries := make([]entry, 0, len(s.collections[collection]))
	for id, d := range s.collections[collection] {
		entries = append(entries, entry{seq: d.seq, doc: Document{ID: id, Data: cloneMap(d.data)}})
	}
	s.mu.RUnlock()

	// Thứ tự chèn trước, rồi sắp xếp ổn định theo field nếu có
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	docs := make([]Document, len(entries))
	for i := range entries {
		docs[i] = entries[i].doc
	}
	SortDocuments(docs, opts)
	return docs, nil
}

// Watch gửi snapshot ban đầu và một snapshot sau mỗi lần collection thay đổi.
// Nhiều thay đổi liên tiếp có thể gộp thành một snapshot.
func (s *MemoryStore) Watch(ctx context.Context, collection string, opts ListOptions, onSnapshot SnapshotFunc) error {
	changed := make(chan struct{}, 1)
	unsubscribe := s.bus.Subscribe(func(_ context.Context, e events.DataChangeEvent) {
		if e.CollectionName != collection {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	docs, err := s.List(ctx, collection, opts)
	if err != nil {
		return err
	}
	onSnapshot(docs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			docs, err := s.List(ctx, collection, opts)
			if err != nil {
				return err
			}
			onSnapshot(docs)
		}
	}
}

// Close không làm gì với store bộ nhớ
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
