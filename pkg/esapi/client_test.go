package esapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/esxm/pkg/config"
)

var testCreds = config.Credentials{Username: "elastic", Password: "s3cret"}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, testCreds, "")
	require.NoError(t, err)
	return c
}

func TestClusterHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_cluster/health", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "s3cret", pass)
		w.Write([]byte(`{"cluster_name":"es-demo","status":"yellow","number_of_nodes":1,"active_shards":12}`))
	}))

	h, err := c.ClusterHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "es-demo", h.ClusterName)
	assert.Equal(t, "yellow", h.Status)
	assert.EqualValues(t, 1, h.NodeCount)
}

func TestClusterHealth_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"master_not_discovered_exception"}`, http.StatusServiceUnavailable)
	}))
	_, err := c.ClusterHealth(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

const catNodesBody = `[
  {"name":"es01","ip":"10.0.0.2","node.role":"cdfhilmrstw","master":"*"},
  {"name":"node2","ip":"10.0.0.3","node.role":"di","master":"-"}
]`

func TestCatNodes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_cat/nodes", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(catNodesBody))
	}))

	nodes, err := c.CatNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, NodeInfo{Name: "es01", IP: "10.0.0.2", Roles: "cdfhilmrstw", Master: true}, nodes[0])
	assert.Equal(t, NodeInfo{Name: "node2", IP: "10.0.0.3", Roles: "di", Master: false}, nodes[1])
}

func TestAnswering(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	assert.True(t, c.Answering(context.Background()), "401 still proves the service is up")

	down, err := NewClient("http://127.0.0.1:1", config.Credentials{}, "")
	require.NoError(t, err)
	assert.False(t, down.Answering(context.Background()))
}

func TestHealthAtLeast(t *testing.T) {
	status := "red"
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cluster_name":"c","status":"` + status + `","number_of_nodes":1}`))
	}))

	probe := c.HealthAtLeast("yellow")
	ready, err := probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ready, "red is below yellow")

	for _, s := range []string{"yellow", "green"} {
		status = s
		ready, err = probe(context.Background())
		require.NoError(t, err)
		assert.True(t, ready, "%s satisfies a yellow floor", s)
	}
}

func TestNodeJoined(t *testing.T) {
	body := `[{"name":"es01","ip":"10.0.0.2","node.role":"m","master":"*"}]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))

	probe := c.NodeJoined("node2")
	ready, err := probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	body = catNodesBody
	ready, err = probe(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestKibanaAvailable(t *testing.T) {
	level := "degraded"
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status", r.URL.Path)
		w.Write([]byte(`{"status":{"overall":{"level":"` + level + `"}}}`))
	}))

	probe := c.KibanaAvailable()
	ready, err := probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	level = "available"
	ready, err = probe(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestFleetHealthy(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status", r.URL.Path)
		w.Write([]byte(`{"name":"fleet-server","status":"HEALTHY"}`))
	}))

	ready, err := c.FleetHealthy()(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestNewClient_BadCACert(t *testing.T) {
	_, err := NewClient("https://10.0.0.2:9200", testCreds, "/does/not/exist/ca.crt")
	assert.Error(t, err)
}
