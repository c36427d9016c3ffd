package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joao-augusto-1103/fireflynexus-sub002/config"
	"github.com/joao-augusto-1103/fireflynexus-sub002/internal/database"
)

// run chạy gatewayctl với store cho trước, trả về stdout
func run(t *testing.T, store database.DocumentStore, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_BACKEND=memory\n"), 0o600))

	opts := &RootOptions{
		openStore: func(context.Context, *config.Configuration) (database.DocumentStore, error) {
			return store, nil
		},
	}
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", envFile, "--backend", "memory"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCollectionsYAML(t *testing.T) {
	out, err := run(t, database.NewMemoryStore(), "collections", "--yaml")
	require.NoError(t, err)

	var doc struct {
		Collections []collectionEntry `yaml:"collections"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Collections, 12)
	assert.Contains(t, doc.Collections, collectionEntry{Logical: "customers", Physical: "clientes"})
}

func TestCollectionsText(t *testing.T) {
	out, err := run(t, database.NewMemoryStore(), "collections")
	require.NoError(t, err)
	assert.Contains(t, out, "serviceOrders")
	assert.Contains(t, out, "ordensServico")
}

func TestProbe(t *testing.T) {
	out, err := run(t, database.NewMemoryStore(), "probe")
	require.NoError(t, err)
	assert.Contains(t, out, `"available": true`)
}

type unreachableStore struct{ *database.MemoryStore }

func (unreachableStore) Get(context.Context, string, string) (*database.Document, error) {
	return nil, errors.New("no route to host")
}

func TestProbeUnavailable(t *testing.T) {
	out, err := run(t, unreachableStore{database.NewMemoryStore()}, "probe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route to host")
	assert.Contains(t, out, `"available": false`)
}

func TestEnsureCustomerThenList(t *testing.T) {
	store := database.NewMemoryStore()

	out, err := run(t, store, "ensure-customer", "--name", "João", "--phone", " 11 98888-0000 ", "--via", "saleOrder")
	require.NoError(t, err)
	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "11 98888-0000", first["phone"])
	assert.Equal(t, "saleOrder", first["registeredVia"])

	out, err = run(t, store, "ensure-customer", "--name", "João", "--phone", "11 98888-0000")
	require.NoError(t, err)
	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, first["id"], second["id"])

	out, err = run(t, store, "list", "customers")
	require.NoError(t, err)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, first["id"], records[0]["id"])
}

func TestEnsureCustomerRejectsBadProvenance(t *testing.T) {
	_, err := run(t, database.NewMemoryStore(), "ensure-customer", "--name", "A", "--phone", "1", "--via", "import")
	assert.Error(t, err)
}

func TestListUnknownCollection(t *testing.T) {
	_, err := run(t, database.NewMemoryStore(), "list", "nope")
	assert.Error(t, err)
}

func TestDuplicatesReportsLegacyRecords(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	for _, phone := range []string{"55 1234", "55 1234 ", "99"} {
		_, err := store.Insert(ctx, "clientes", map[string]interface{}{"name": "X", "phone": phone})
		require.NoError(t, err)
	}

	out, err := run(t, store, "duplicates")
	require.NoError(t, err)
	var groups []struct {
		Phone     string                   `json:"phone"`
		Customers []map[string]interface{} `json:"customers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "55 1234", groups[0].Phone)
	assert.Len(t, groups[0].Customers, 2)
}
