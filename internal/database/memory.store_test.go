package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/common"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Insert(ctx, "clientes", map[string]interface{}{"name": "Ana", "phone": "11"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "clientes", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "Ana", doc.Data["name"])

	require.NoError(t, s.Update(ctx, "clientes", id, map[string]interface{}{"name": "Ana Maria"}))
	doc, err = s.Get(ctx, "clientes", id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", doc.Data["name"])
	assert.Equal(t, "11", doc.Data["phone"])

	err = s.Update(ctx, "clientes", "missing", map[string]interface{}{"x": 1})
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "clientes", id))
	require.NoError(t, s.Delete(ctx, "clientes", id))

	_, err = s.Get(ctx, "clientes", id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStoreIsolatesCallerMaps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := map[string]interface{}{"address": map[string]interface{}{"city": "Recife"}}
	id, err := s.Insert(ctx, "clientes", data)
	require.NoError(t, err)

	data["address"].(map[string]interface{})["city"] = "Natal"

	doc, err := s.Get(ctx, "clientes", id)
	require.NoError(t, err)
	assert.Equal(t, "Recife", doc.Data["address"].(map[string]interface{})["city"])
}

func TestMemoryStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, ts := range []string{"2024-01-02T00:00:00.000Z", "2024-01-03T00:00:00.000Z", "2024-01-01T00:00:00.000Z"} {
		_, err := s.Insert(ctx, "produtos", map[string]interface{}{"createdAt": ts})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, "produtos", map[string]interface{}{"name": "no timestamp"})
	require.NoError(t, err)

	unordered, err := s.List(ctx, "produtos", ListOptions{})
	require.NoError(t, err)
	require.Len(t, unordered, 4)
	assert.Equal(t, "2024-01-02T00:00:00.000Z", unordered[0].Data["createdAt"])

	ordered, err := s.List(ctx, "produtos", ListOptions{OrderBy: "createdAt", Descending: true})
	require.NoError(t, err)
	require.Len(t, ordered, 4)
	assert.Equal(t, "2024-01-03T00:00:00.000Z", ordered[0].Data["createdAt"])
	assert.Equal(t, "2024-01-02T00:00:00.000Z", ordered[1].Data["createdAt"])
	assert.Equal(t, "2024-01-01T00:00:00.000Z", ordered[2].Data["createdAt"])
	assert.Nil(t, ordered[3].Data["createdAt"])

	empty, err := s.List(ctx, "vazio", ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.List(ctx, "clientes", ListOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Insert(ctx, "clientes", map[string]interface{}{})
	assert.ErrorIs(t, err, context.Canceled)
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps [][]Document
}

func (r *snapshotRecorder) record(docs []Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, docs)
}

func (r *snapshotRecorder) last() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestMemoryStoreWatch(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Insert(context.Background(), "vendas", map[string]interface{}{"total": 10})
	require.NoError(t, err)

	rec := &snapshotRecorder{}
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, "vendas", ListOptions{}, rec.record)
	}()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.last(), 1)

	_, err = s.Insert(context.Background(), "vendas", map[string]interface{}{"total": 20})
	require.NoError(t, err)
	// Thay đổi ở collection khác không tạo snapshot mới có dữ liệu khác
	_, err = s.Insert(context.Background(), "clientes", map[string]interface{}{"name": "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.last()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Equal(t, 0, s.bus.Len())
}

func TestOpenStoreMemory(t *testing.T) {
	store, err := OpenStore(context.Background(), &config.Configuration{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())
	assert.NoError(t, store.Close(context.Background()))

	_, err = OpenStore(context.Background(), &config.Configuration{StoreBackend: "sqlite"})
	assert.Error(t, err)
}

func TestSortDocumentsMixedValues(t *testing.T) {
	docs := []Document{
		{ID: "a", Data: map[string]interface{}{"n": 1}},
		{ID: "b", Data: map[string]interface{}{"n": 3.5}},
		{ID: "c", Data: map[string]interface{}{}},
		{ID: "d", Data: map[string]interface{}{"n": int64(2)}},
	}
	SortDocuments(docs, ListOptions{OrderBy: "n", Descending: true})

	ids := []string{}
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)

	SortDocuments(docs, ListOptions{OrderBy: "n"})
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[3].ID)
}
