package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwsvc "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/service"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/middleware"
	apirouter "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/router"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
)

type envelope struct {
	Code    interface{}     `json:"code"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, store database.DocumentStore) *fiber.App {
	t.Helper()
	gw := gwsvc.NewGateway(store, gwsvc.Options{})
	t.Cleanup(gw.Close)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.HandleErrorResponse})
	require.NoError(t, apirouter.SetupRoutes(app, NewRegister(gw)))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	resp, env := do(t, app, http.MethodGet, "/api/v1/system/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", env.Status)
	assert.Contains(t, string(env.Data), `"available":true`)
}

type downStore struct{ *database.MemoryStore }

func (downStore) Get(context.Context, string, string) (*database.Document, error) {
	return nil, errors.New("connection refused")
}

func TestHealthEndpointUnavailable(t *testing.T) {
	app := newTestApp(t, downStore{database.NewMemoryStore()})

	resp, env := do(t, app, http.MethodGet, "/api/v1/system/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "error", env.Status)

	resp, env = do(t, app, http.MethodGet, "/api/v1/collections/products", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "GW_002", env.Code)
}

func TestCollectionCRUDOverHTTP(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	resp, env := do(t, app, http.MethodPost, "/api/v1/collections/products", `{"name":"Coxinha","price":6.5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct{ ID string }
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	resp, env = do(t, app, http.MethodGet, "/api/v1/collections/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, created.ID, one["id"])
	assert.Equal(t, "Coxinha", one["name"])
	assert.NotEmpty(t, one["createdAt"])

	resp, _ = do(t, app, http.MethodPut, "/api/v1/collections/products/"+created.ID, `{"price":7}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = do(t, app, http.MethodGet, "/api/v1/collections/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, float64(7), all[0]["price"])

	resp, _ = do(t, app, http.MethodDelete, "/api/v1/collections/products/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, app, http.MethodDelete, "/api/v1/collections/products/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "delete is idempotent")

	resp, env = do(t, app, http.MethodGet, "/api/v1/collections/products/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "DB_003", env.Code)
}

func TestUnknownCollectionOverHTTP(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	resp, env := do(t, app, http.MethodGet, "/api/v1/collections/not_a_real_collection", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "GW_001", env.Code)
}

func TestUpdateMissingOverHTTP(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	resp, env := do(t, app, http.MethodPut, "/api/v1/collections/products/missing", `{"price":1}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "GW_003", env.Code)
}

func TestCreateRejectsNonObjectBody(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	for _, body := range []string{`[1,2]`, `null`, `{bad json`} {
		resp, env := do(t, app, http.MethodPost, "/api/v1/collections/products", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "VAL_002", env.Code, body)
	}
}

func TestListCollections(t *testing.T) {
	app := newTestApp(t, database.NewMemoryStore())

	resp, env := do(t, app, http.MethodGet, "/api/v1/collections", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	require.NoError(t, json.Unmarshal(env.Data, &names))
	assert.Contains(t, names, "customers")
	assert.Len(t, names, 12)
}

// brokenWatchStore gửi một snapshot rồi báo lỗi
type brokenWatchStore struct{ *database.MemoryStore }

func (brokenWatchStore) Watch(_ context.Context, _ string, _ database.ListOptions, onSnapshot database.SnapshotFunc) error {
	onSnapshot(nil)
	return errors.New("stream reset by peer")
}

func TestStreamEndsWithErrorEvent(t *testing.T) {
	app := newTestApp(t, brokenWatchStore{database.NewMemoryStore()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/products/stream", nil)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "event: snapshot\ndata: []")
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "GW_006")
	assert.Contains(t, body, "stream reset by peer")
}
