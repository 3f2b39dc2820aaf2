package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/wire"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func restConfigFor(t *testing.T, srv *httptest.Server) node.Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return node.Config{
		ID:      1,
		Kind:    model.ConnectionREST,
		Address: u.Hostname(),
		Port:    port,
		APIKey:  "secret",
		Name:    "rest-node",
	}
}

func TestRESTBridge_UpdateUsers(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/users" {
			gotKey = r.Header.Get("X-API-Key")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := New(restConfigFor(t, srv), testLogger())
	require.NoError(t, err)
	defer b.Stop(context.Background())

	err = b.UpdateUsers(context.Background(), &wire.UserBatch{Users: []*wire.User{{ID: 1, Username: "alice"}}})
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)

	h, err := b.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, node.HealthHealthy, h)
}

func TestRESTBridge_ErrorMarksBroken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := New(restConfigFor(t, srv), testLogger())
	require.NoError(t, err)
	defer b.Stop(context.Background())

	err = b.UpdateUser(context.Background(), &wire.User{ID: 1, Username: "alice"})
	require.Error(t, err)

	h, err := b.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, node.HealthBroken, h)
}

func TestRESTBridge_InvalidIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := New(restConfigFor(t, srv), testLogger())
	require.NoError(t, err)
	defer b.Stop(context.Background())

	require.NoError(t, b.SetHealth(context.Background(), node.HealthInvalid))
	_ = b.UpdateUser(context.Background(), &wire.User{ID: 1, Username: "alice"})

	h, err := b.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, node.HealthInvalid, h, "transport traffic must not resurrect a retired handle")
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(node.Config{ID: 1, Kind: "smoke-signal"}, testLogger())
	require.ErrorIs(t, err, node.ErrUnknownKind)
}

func TestNew_BadServerCA(t *testing.T) {
	cfg := node.Config{ID: 1, Kind: model.ConnectionREST, Address: "10.0.0.1", Port: 62050, ServerCA: "not a pem"}
	_, err := New(cfg, testLogger())
	require.Error(t, err)
}
