package status

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/esapi"
)

// stateRuntime answers ContainerState from a fixed map; everything else is
// unused by the reporter.
type stateRuntime struct {
	connector.Runtime
	states map[string]string
	err    error
}

func (r *stateRuntime) ContainerState(_ context.Context, name string) (*connector.ContainerStatus, error) {
	if r.err != nil {
		return nil, r.err
	}
	state, ok := r.states[name]
	if !ok {
		state = connector.StateMissing
	}
	return &connector.ContainerStatus{Name: name, State: state}, nil
}

type fakeAPI struct {
	answering bool
	health    *esapi.ClusterHealth
	healthErr error
	nodes     []esapi.NodeInfo
	nodesErr  error
}

func (a *fakeAPI) Answering(context.Context) bool { return a.answering }

func (a *fakeAPI) ClusterHealth(context.Context) (*esapi.ClusterHealth, error) {
	return a.health, a.healthErr
}

func (a *fakeAPI) CatNodes(context.Context) ([]esapi.NodeInfo, error) {
	return a.nodes, a.nodesErr
}

var demoContainers = []string{"es-demo-es01", "es-demo-kibana", "es-demo-fleet-server"}

func TestSnapshot_HealthyCluster(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{
		"es-demo-es01":         connector.StateRunning,
		"es-demo-kibana":       connector.StateRunning,
		"es-demo-fleet-server": connector.StateRunning,
	}}
	api := &fakeAPI{
		answering: true,
		health:    &esapi.ClusterHealth{ClusterName: "es-demo", Status: "green", NodeCount: 2},
		nodes: []esapi.NodeInfo{
			{Name: "es01", IP: "10.0.0.2", Roles: "cdfhilmrstw", Master: true},
			{Name: "node2", IP: "10.0.0.3", Roles: "di"},
		},
	}

	snap, err := NewReporter(rt, api, demoContainers).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.ClusterQueryErr)
	require.NotNil(t, snap.Cluster)
	assert.Equal(t, "green", snap.Cluster.Status)
	assert.Len(t, snap.Nodes, 2)
	assert.Equal(t, connector.StateRunning, snap.ContainerStates["es-demo-es01"])
}

func TestSnapshot_NothingRunning(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{}}
	api := &fakeAPI{answering: true, health: &esapi.ClusterHealth{Status: "green"}}

	snap, err := NewReporter(rt, api, demoContainers).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Cluster, "no cluster query when every container is down")
	assert.Contains(t, snap.ClusterQueryErr, "no expected container is running")
	require.Len(t, snap.ContainerStates, 3, "container states are reported regardless")
	for _, name := range demoContainers {
		assert.Equal(t, connector.StateMissing, snap.ContainerStates[name])
	}
}

func TestSnapshot_EndpointNotAnswering(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{"es-demo-es01": connector.StateRunning}}
	api := &fakeAPI{answering: false}

	snap, err := NewReporter(rt, api, demoContainers).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snap.ClusterQueryErr, "endpoint not answering")
	assert.Nil(t, snap.Cluster)
}

func TestSnapshot_HealthQueryFailureDegrades(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{"es-demo-es01": connector.StateRunning}}
	api := &fakeAPI{answering: true, healthErr: errors.New(errors.KindPhaseFailed, "401 Unauthorized")}

	snap, err := NewReporter(rt, api, demoContainers).Snapshot(context.Background())
	require.NoError(t, err, "a failed cluster query degrades the snapshot, not the call")
	assert.Contains(t, snap.ClusterQueryErr, "401 Unauthorized")
	assert.Equal(t, connector.StateRunning, snap.ContainerStates["es-demo-es01"])
}

func TestSnapshot_NodeListFailureKeepsHealth(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{"es-demo-es01": connector.StateRunning}}
	api := &fakeAPI{
		answering: true,
		health:    &esapi.ClusterHealth{ClusterName: "es-demo", Status: "yellow", NodeCount: 1},
		nodesErr:  errors.New(errors.KindPhaseFailed, "timeout"),
	}

	snap, err := NewReporter(rt, api, demoContainers).Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Cluster)
	assert.Empty(t, snap.Nodes)
	assert.Contains(t, snap.ClusterQueryErr, "node list unavailable")
}

func TestSnapshot_RuntimeErrorIsFatal(t *testing.T) {
	rt := &stateRuntime{err: errors.New(errors.KindPhaseFailed, "daemon unreachable")}
	_, err := NewReporter(rt, nil, demoContainers).Snapshot(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_NilAPI(t *testing.T) {
	rt := &stateRuntime{states: map[string]string{"es-demo-es01": connector.StateRunning}}
	snap, err := NewReporter(rt, nil, demoContainers).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, snap.ClusterQueryErr, "no endpoint configured")
}

func TestRender(t *testing.T) {
	rt := &stateRuntime{}
	r := NewReporter(rt, nil, demoContainers)
	snap := &ClusterStatus{
		ContainerStates: map[string]string{
			"es-demo-es01":         connector.StateRunning,
			"es-demo-kibana":       connector.StateExited,
			"es-demo-fleet-server": connector.StateMissing,
		},
		Cluster: &esapi.ClusterHealth{ClusterName: "es-demo", Status: "yellow", NodeCount: 1},
		Nodes:   []esapi.NodeInfo{{Name: "es01", IP: "10.0.0.2", Roles: "m", Master: true}},
	}

	var buf bytes.Buffer
	r.Render(&buf, snap)
	out := buf.String()
	for _, want := range []string{"CONTAINER", "es-demo-es01", "es-demo-kibana", "CLUSTER", "es-demo", "NODE", "10.0.0.2"} {
		assert.Contains(t, out, want)
	}
}

var _ HealthAPI = (*esapi.Client)(nil)
