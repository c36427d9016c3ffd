package gwsvc

import (
	"context"
	"errors"
	"sync"

	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/logger"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/metrics"
)

// Subscription là luồng snapshot của một collection.
//
// Mỗi giá trị nhận từ Updates là toàn bộ danh sách hiện tại (không phải diff).
// Updates được đóng khi Unsubscribe, khi ctx của Subscribe kết thúc hoặc khi lỗi;
// sau khi đóng, Err trả về lỗi kết thúc (nil nếu do huỷ).
type Subscription struct {
	collection string
	updates    chan []gwmodels.StoredRecord
	done       chan struct{}
	cancel     context.CancelFunc
	once       sync.Once

	mu      sync.Mutex
	err     error
	ordered bool
}

// Updates trả về channel snapshot
func (s *Subscription) Updates() <-chan []gwmodels.StoredRecord {
	return s.updates
}

// Err trả về lỗi kết thúc của subscription
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Ordered cho biết subscription còn đang dùng truy vấn có sắp xếp không
func (s *Subscription) Ordered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordered
}

// Unsubscribe dừng subscription. Gọi nhiều lần, từ goroutine nào cũng được.
// Có thể còn tối đa một snapshot đến muộn đang trên đường.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// deliver gửi snapshot; bỏ qua nếu đã unsubscribe
func (s *Subscription) deliver(docs []database.Document) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.updates <- toStoredRecords(docs):
	case <-s.done:
	}
}

func (s *Subscription) setOrdered(ordered bool) {
	s.mu.Lock()
	s.ordered = ordered
	s.mu.Unlock()
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.updates)
}

// Subscribe mở luồng snapshot của collection logic.
//
// Thử truy vấn có sắp xếp trước; store từ chối thì chuyển sang không sắp xếp cho tới hết
// vòng đời subscription. Lỗi ở nhánh fallback là lỗi cuối cùng (SubscriptionFailed).
func (g *Gateway) Subscribe(ctx context.Context, logical string) (_ *Subscription, err error) {
	defer func() {
		if err != nil {
			metrics.ObserveOperation("subscribe", collectionLabel(logical), outcomeOf(err))
		}
	}()

	physical, err := g.prepare(ctx, logical)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		collection: logical,
		updates:    make(chan []gwmodels.StoredRecord, 1),
		done:       make(chan struct{}),
		cancel:     cancel,
		ordered:    true,
	}

	metrics.ObserveOperation("subscribe", logical, metrics.OutcomeOK)
	metrics.GatewaySubscriptions.Inc()
	go g.runSubscription(watchCtx, sub, physical)
	return sub, nil
}

func (g *Gateway) runSubscription(ctx context.Context, sub *Subscription, physical string) {
	defer metrics.GatewaySubscriptions.Dec()
	defer sub.cancel()

	log := logger.WithModuleAndCollection("gateway", sub.collection)

	err := g.store.Watch(ctx, physical, orderedByCreatedAt, sub.deliver)
	if errors.Is(err, common.ErrOrderedRefused) && ctx.Err() == nil {
		log.WithError(err).Warn("Ordered subscription refused, falling back to unordered")
		metrics.GatewayFallbacks.WithLabelValues("subscribe", sub.collection).Inc()
		sub.setOrdered(false)
		err = g.store.Watch(ctx, physical, database.ListOptions{}, sub.deliver)
	}

	if ctx.Err() != nil {
		// Huỷ bởi caller: kết thúc bình thường
		sub.finish(nil)
		return
	}
	if err == nil {
		err = errors.New("watch ended unexpectedly")
	}
	log.WithError(err).Error("Subscription failed")
	sub.finish(common.SubscriptionFailed(err))
}
