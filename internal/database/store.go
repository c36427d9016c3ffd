// Package database chứa các backend lưu trữ document (MongoDB, Firestore, bộ nhớ)
// sau một interface chung DocumentStore.
package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
)

// Document là một bản ghi đọc từ store: id do store cấp và dữ liệu đã chuẩn hoá
// về map/slice/scalar thuần (JSON được).
type Document struct {
	ID   string
	Data map[string]interface{}
}

// ListOptions điều khiển thứ tự đọc; OrderBy rỗng nghĩa là không sắp xếp
type ListOptions struct {
	OrderBy    string
	Descending bool
}

// Ordered cho biết truy vấn có yêu cầu sắp xếp không
func (o ListOptions) Ordered() bool {
	return o.OrderBy != ""
}

// SnapshotFunc nhận toàn bộ danh sách document của collection tại một thời điểm
type SnapshotFunc func(docs []Document)

// DocumentStore là các primitive mà gateway cần từ store.
// Mọi method nhận tên collection vật lý.
type DocumentStore interface {
	// Name trả về tên backend (mongodb, firestore, memory)
	Name() string
	// Insert thêm document mới, trả về id do store cấp
	Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Update merge các field cấp một vào document; id không tồn tại trả về common.ErrNotFound
	Update(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Get đọc một document; không tồn tại trả về common.ErrNotFound
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Delete xoá document; id không tồn tại không phải lỗi
	Delete(ctx context.Context, collection, id string) error
	// List đọc toàn bộ document của collection
	List(ctx context.Context, collection string, opts ListOptions) ([]Document, error)
	// Watch gửi snapshot ban đầu rồi một snapshot sau mỗi lần thay đổi.
	// Block tới khi ctx kết thúc (trả về ctx.Err()) hoặc store báo lỗi.
	Watch(ctx context.Context, collection string, opts ListOptions, onSnapshot SnapshotFunc) error
	// Close giải phóng kết nối
	Close(ctx context.Context) error
}

// OpenStore tạo DocumentStore theo cấu hình STORE_BACKEND
func OpenStore(ctx context.Context, cfg *config.Configuration) (DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMongoDB:
		client, err := GetInstance(cfg)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, cfg.MongoDB_DBName, true), nil
	case config.BackendFirestore:
		client, err := NewFirestoreClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewFirestoreStore(client), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

// SortDocuments sắp xếp docs theo opts (ổn định); document thiếu field đứng cuối
func SortDocuments(docs []Document, opts ListOptions) {
	if !opts.Ordered() {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Data[opts.OrderBy]
		b, bok := docs[j].Data[opts.OrderBy]
		switch {
		case !aok || a == nil:
			return false
		case !bok || b == nil:
			return true
		}
		c := compareValues(a, b)
		if opts.Descending {
			return c > 0
		}
		return c < 0
	})
}

// compareValues so sánh hai giá trị cùng loại; khác loại thì so theo hạng loại
func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	}
	if af, ok := toFloat(a); ok {
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case bool:
		return 1
	case string:
		return 3
	case time.Time:
		return 4
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	return 5
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
