package gwsvc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/events"
	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/metrics"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/utility"
)

// faultyStore bọc MemoryStore để giả lập các lỗi của store thật
type faultyStore struct {
	*database.MemoryStore

	rejectOrdered        bool          // từ chối List/Watch có sắp xếp
	failUnorderedWatch   error         // lỗi cho Watch không sắp xếp
	listDelay            time.Duration // List chậm, không tôn trọng ctx
	insertErr            error
	probeErr             error
	lateListCompleted    atomic.Bool
	inserts, lists, gets atomic.Int32
	mu                   sync.Mutex
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: database.NewMemoryStore()}
}

func (f *faultyStore) calls() int32 {
	return f.inserts.Load() + f.lists.Load() + f.gets.Load()
}

func (f *faultyStore) setProbeErr(err error) {
	f.mu.Lock()
	f.probeErr = err
	f.mu.Unlock()
}

func (f *faultyStore) Get(ctx context.Context, collection, id string) (*database.Document, error) {
	f.gets.Add(1)
	f.mu.Lock()
	probeErr := f.probeErr
	f.mu.Unlock()
	if collection == DefaultProbeCollection && probeErr != nil {
		return nil, probeErr
	}
	return f.MemoryStore.Get(ctx, collection, id)
}

func (f *faultyStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	f.inserts.Add(1)
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.MemoryStore.Insert(ctx, collection, data)
}

func (f *faultyStore) List(ctx context.Context, collection string, opts database.ListOptions) ([]database.Document, error) {
	f.lists.Add(1)
	if f.rejectOrdered && opts.Ordered() {
		return nil, common.OrderedRefused(errors.New("the query requires an index"))
	}
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
		docs, err := f.MemoryStore.List(context.Background(), collection, opts)
		if err == nil {
			f.lateListCompleted.Store(true)
		}
		return docs, err
	}
	return f.MemoryStore.List(ctx, collection, opts)
}

func (f *faultyStore) Watch(ctx context.Context, collection string, opts database.ListOptions, onSnapshot database.SnapshotFunc) error {
	if f.rejectOrdered && opts.Ordered() {
		return common.OrderedRefused(errors.New("the query requires an index"))
	}
	if !opts.Ordered() && f.failUnorderedWatch != nil {
		return f.failUnorderedWatch
	}
	return f.MemoryStore.Watch(ctx, collection, opts, onSnapshot)
}

// stepClock tăng một giây mỗi lần gọi để timestamps luôn khác nhau
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestGateway(t *testing.T, store database.DocumentStore, opts Options) *Gateway {
	t.Helper()
	if opts.Now == nil {
		clock := &stepClock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
		opts.Now = clock.Now
	}
	g := NewGateway(store, opts)
	t.Cleanup(g.Close)
	return g
}

func nextSnapshot(t *testing.T, sub *Subscription) []gwmodels.StoredRecord {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed: %v", sub.Err())
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestUnknownCollectionNeverReachesStore(t *testing.T) {
	store := newFaultyStore()
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	_, err := g.GetAll(ctx, "not_a_real_collection")
	assert.ErrorIs(t, err, common.ErrUnknownCollection)

	_, err = g.Create(ctx, "not_a_real_collection", gwmodels.Record{"a": 1})
	assert.ErrorIs(t, err, common.ErrUnknownCollection)

	_, err = g.Subscribe(ctx, "")
	assert.ErrorIs(t, err, common.ErrUnknownCollection)

	assert.Zero(t, store.calls(), "no store call, not even the probe")
}

func TestCreateSanitizesAndStamps(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	id, err := g.Create(ctx, "customers", gwmodels.Record{
		"id":    "caller-chosen",
		"name":  "Ana",
		"email": utility.Absent,
		"address": map[string]interface{}{
			"street": "Rua A",
			"number": utility.Absent,
			"extra":  nil,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotEqual(t, "caller-chosen", id)

	rec, found, err := g.GetOne(ctx, "customers", id)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "Ana", rec.Data["name"])
	assert.NotContains(t, rec.Data, "email")
	assert.NotContains(t, rec.Data, "id")
	assert.Equal(t, map[string]interface{}{"street": "Rua A", "extra": nil}, rec.Data["address"])
	assert.NotEmpty(t, rec.Data["createdAt"])
	assert.Equal(t, rec.Data["createdAt"], rec.Data["updatedAt"])
}

func TestCreateKeepsCallerTimestamps(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	id, err := g.Create(ctx, "products", gwmodels.Record{"createdAt": "2020-01-01T00:00:00.000Z"})
	require.NoError(t, err)

	rec, _, err := g.GetOne(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T00:00:00.000Z", rec.Data["createdAt"])
	assert.NotEqual(t, "2020-01-01T00:00:00.000Z", rec.Data["updatedAt"])
}

func TestUpdateRefreshesUpdatedAt(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	id, err := g.Create(ctx, "products", gwmodels.Record{"name": "A"})
	require.NoError(t, err)
	before, _, err := g.GetOne(ctx, "products", id)
	require.NoError(t, err)

	got, err := g.Update(ctx, "products", id, gwmodels.Record{"name": "B", "id": "other"})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	after, _, err := g.GetOne(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, "B", after.Data["name"])
	assert.Equal(t, before.Data["createdAt"], after.Data["createdAt"])
	assert.Greater(t, after.Data["updatedAt"].(string), before.Data["updatedAt"].(string))
	assert.NotContains(t, after.Data, "id")
}

func TestUpdateMissingIDIsWriteFailed(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})

	_, err := g.Update(context.Background(), "products", "missing", gwmodels.Record{"name": "B"})
	assert.ErrorIs(t, err, common.ErrWriteFailed)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEmptyIDIsInvalidInputWithoutIO(t *testing.T) {
	store := newFaultyStore()
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	_, err := g.Update(ctx, "products", "", gwmodels.Record{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, _, err = g.GetOne(ctx, "products", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.ErrorIs(t, g.Delete(ctx, "products", ""), common.ErrInvalidInput)
	assert.Zero(t, store.calls())
}

func TestCreateWriteFailure(t *testing.T) {
	store := newFaultyStore()
	store.insertErr = errors.New("permission denied")
	g := newTestGateway(t, store, Options{})

	_, err := g.Create(context.Background(), "vendas", gwmodels.Record{})
	assert.ErrorIs(t, err, common.ErrUnknownCollection, "physical names are not logical names")

	_, err = g.Create(context.Background(), "saleOrders", gwmodels.Record{"total": 10})
	assert.ErrorIs(t, err, common.ErrWriteFailed)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestGetOneNotFoundIsNotAnError(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})

	rec, found, err := g.GetOne(context.Background(), "users", "nope")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestDeleteIsIdempotent(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	id, err := g.Create(ctx, "options", gwmodels.Record{"label": "x"})
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, "options", id))
	require.NoError(t, g.Delete(ctx, "options", id))
	require.NoError(t, g.Delete(ctx, "options", "never-existed"))

	_, found, err := g.GetOne(ctx, "options", id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetAllOrderedNewestFirst(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := g.Create(ctx, "categories", gwmodels.Record{"n": i})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := g.GetAll(ctx, "categories")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].CreatedAt(), all[i].CreatedAt())
	}
	assert.Equal(t, ids[3], all[0].ID)
	assert.Equal(t, ids[0], all[3].ID)
}

func TestGetAllFallsBackWhenOrderingRefused(t *testing.T) {
	store := newFaultyStore()
	store.rejectOrdered = true
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.Create(ctx, "products", gwmodels.Record{"n": i})
		require.NoError(t, err)
	}

	fallbacks := metrics.GatewayFallbacks.WithLabelValues("read", "products")
	before := testutil.ToFloat64(fallbacks)

	all, err := g.GetAll(ctx, "products")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int32(2), store.lists.Load(), "one ordered attempt and one fallback")
	assert.Equal(t, before+1, testutil.ToFloat64(fallbacks))
}

func TestGetAllTimeoutDiscardsLateResult(t *testing.T) {
	store := newFaultyStore()
	g := newTestGateway(t, store, Options{ReadTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := g.Create(ctx, "stockMoves", gwmodels.Record{"qty": 1})
	require.NoError(t, err)

	store.listDelay = 200 * time.Millisecond
	started := time.Now()
	all, err := g.GetAll(ctx, "stockMoves")
	assert.ErrorIs(t, err, common.ErrReadTimeout)
	assert.Nil(t, all)
	assert.Less(t, time.Since(started), 150*time.Millisecond)

	assert.Eventually(t, store.lateListCompleted.Load, time.Second, 10*time.Millisecond,
		"the underlying read still succeeds after the timeout")
}

func TestGetAllCallerCancellation(t *testing.T) {
	store := newFaultyStore()
	g := newTestGateway(t, store, Options{})
	require.NoError(t, g.Probe(context.Background()))

	store.listDelay = 200 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := g.GetAll(ctx, "cashSessions")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProbeFailureIsSticky(t *testing.T) {
	store := newFaultyStore()
	store.setProbeErr(errors.New("dial tcp: connection refused"))
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	_, err := g.GetAll(ctx, "products")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = g.Create(ctx, "products", gwmodels.Record{})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	assert.Equal(t, int32(1), store.gets.Load(), "probe runs once")
	assert.Zero(t, store.inserts.Load())
	assert.Zero(t, store.lists.Load())

	h := g.Health(ctx)
	assert.False(t, h.Available)
	assert.True(t, h.Probed)
	assert.Contains(t, h.Error, "connection refused")

	// Store đã lên lại nhưng gateway vẫn Unavailable cho tới khi probe lại
	store.setProbeErr(nil)
	_, err = g.GetAll(ctx, "products")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	require.NoError(t, g.Probe(ctx))
	_, err = g.GetAll(ctx, "products")
	assert.NoError(t, err)
	assert.True(t, g.Health(ctx).Available)
}

func TestProbeIgnoresCallerCancellation(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := g.Health(ctx)
	assert.True(t, h.Available)
	assert.Equal(t, "memory", h.Backend)
}

func TestWritesEmitDataChanged(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	received := make(chan events.DataChangeEvent, 8)
	unsubscribe := events.OnDataChanged(func(_ context.Context, e events.DataChangeEvent) {
		if e.CollectionName != "optionGroups" {
			return
		}
		select {
		case received <- e:
		default:
		}
	})
	defer unsubscribe()

	id, err := g.Create(ctx, "optionGroups", gwmodels.Record{"name": "Tamanho"})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, events.OpInsert, e.Operation)
		assert.Equal(t, id, e.DocumentID)
		assert.Equal(t, "Tamanho", e.Document["name"])
	case <-time.After(2 * time.Second):
		t.Fatal("no data change event")
	}
}

func TestSubscribeDeliversFullSnapshots(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})
	ctx := context.Background()

	_, err := g.Create(ctx, "serviceOrders", gwmodels.Record{"n": 1})
	require.NoError(t, err)

	sub, err := g.Subscribe(ctx, "serviceOrders")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	first := nextSnapshot(t, sub)
	assert.Len(t, first, 1)
	assert.True(t, sub.Ordered())

	_, err = g.Create(ctx, "serviceOrders", gwmodels.Record{"n": 2})
	require.NoError(t, err)

	var snap []gwmodels.StoredRecord
	for len(snap) != 2 {
		snap = nextSnapshot(t, sub)
	}
	assert.Equal(t, 2, snap[0].Data["n"], "newest first")
}

func TestUnsubscribeClosesUpdates(t *testing.T) {
	g := newTestGateway(t, newFaultyStore(), Options{})

	sub, err := g.Subscribe(context.Background(), "financialEntries")
	require.NoError(t, err)
	nextSnapshot(t, sub)

	sub.Unsubscribe()
	sub.Unsubscribe()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				assert.NoError(t, sub.Err())
				return
			}
		case <-deadline:
			t.Fatal("updates not closed after unsubscribe")
		}
	}
}

func TestSubscribeFallsBackToUnordered(t *testing.T) {
	store := newFaultyStore()
	store.rejectOrdered = true
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	_, err := g.Create(ctx, "products", gwmodels.Record{"n": 1})
	require.NoError(t, err)

	sub, err := g.Subscribe(ctx, "products")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := nextSnapshot(t, sub)
	assert.Len(t, snap, 1)
	assert.False(t, sub.Ordered())
}

func TestSubscribeFallbackFailureIsTerminal(t *testing.T) {
	store := newFaultyStore()
	store.rejectOrdered = true
	store.failUnorderedWatch = errors.New("permission denied")
	g := newTestGateway(t, store, Options{})

	sub, err := g.Subscribe(context.Background(), "products")
	require.NoError(t, err)

	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not terminate")
	}
	assert.ErrorIs(t, sub.Err(), common.ErrSubscriptionFailed)
	assert.Contains(t, sub.Err().Error(), "permission denied")
}

func TestGetSettingsIsCached(t *testing.T) {
	store := newFaultyStore()
	g := newTestGateway(t, store, Options{})
	ctx := context.Background()

	id, err := g.Create(ctx, "configVariants", gwmodels.Record{"theme": "dark"})
	require.NoError(t, err)

	first, found, err := g.GetSettings(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dark", first.Data["theme"])
	gets := store.gets.Load()

	// Bản trả về là bản sao, sửa không ảnh hưởng cache
	first.Data["theme"] = "light"

	second, found, err := g.GetSettings(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dark", second.Data["theme"])
	assert.Equal(t, gets, store.gets.Load(), "served from cache")

	_, found, err = g.GetSettings(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
