package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-fleet/pkg/journal"
	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/store"
	"proxy-fleet/pkg/wire"
)

type staticBridge struct {
	health node.Health
}

func (s *staticBridge) SetHealth(_ context.Context, h node.Health) error {
	s.health = h
	return nil
}

func (s *staticBridge) GetHealth(context.Context) (node.Health, error) { return s.health, nil }

func (s *staticBridge) Stop(context.Context) error { return nil }

func (s *staticBridge) UpdateUsers(context.Context, *wire.UserBatch) error { return nil }

func (s *staticBridge) UpdateUser(context.Context, *wire.User) error { return nil }

func testDeps(t *testing.T) (Deps, map[int64]*staticBridge) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	logger := logrus.NewEntry(l)

	bridges := make(map[int64]*staticBridge)
	factory := func(cfg node.Config, _ *logrus.Entry) (node.Bridge, error) {
		b := &staticBridge{health: node.HealthNotConnected}
		bridges[cfg.ID] = b
		return b, nil
	}

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return Deps{
		Nodes:   node.NewManager(factory, logger, 0),
		Mirror:  store.NewNoop(),
		Journal: j,
		Logger:  logger,
	}, bridges
}

func TestRoutes_RequireAuth(t *testing.T) {
	d, _ := testDeps(t)
	mux := http.NewServeMux()
	RegisterRoutes(mux, d, "bootstrap-token")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/nodes/health", nil)
	req.Header.Set("X-Auth-Token", "bootstrap-token")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/nodes/health", nil)
	req.Header.Set("Authorization", "Bearer bootstrap-token")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleNodeHealth_Classifies(t *testing.T) {
	d, bridges := testDeps(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		_, err := d.Nodes.UpdateNode(ctx, node.Config{ID: id, Kind: model.ConnectionREST, Name: "n"})
		require.NoError(t, err)
	}
	require.NoError(t, bridges[1].SetHealth(ctx, node.HealthHealthy))
	require.NoError(t, bridges[2].SetHealth(ctx, node.HealthBroken))

	rec := httptest.NewRecorder()
	d.handleNodeHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nodes/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary HealthSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, []int64{1}, summary.Healthy)
	assert.Equal(t, []int64{2}, summary.Broken)
	assert.Equal(t, []int64{3}, summary.NotConnected)
}

func TestHandleJournal(t *testing.T) {
	d, _ := testDeps(t)
	d.Journal.Record(context.Background(), 7, "registered", "rest")

	rec := httptest.NewRecorder()
	d.handleJournal(rec, httptest.NewRequest(http.MethodGet, "/api/v1/journal", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []journal.Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].NodeID)
	assert.Equal(t, "registered", entries[0].Event)
}

func TestHandlers_WithoutDatabase(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	d.handleNodes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	d.handleUserUpsert(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"username":"alice"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	d.handleUserSync(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/sync", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerTLSConfig_MissingKeypair(t *testing.T) {
	dir := t.TempDir()
	_, err := ServerTLSConfig(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), "")
	assert.Error(t, err)
}

func TestHandleNodeHealth_MethodNotAllowed(t *testing.T) {
	d, _ := testDeps(t)

	rec := httptest.NewRecorder()
	d.handleNodeHealth(rec, httptest.NewRequest(http.MethodPost, "/api/v1/nodes/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
