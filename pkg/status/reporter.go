// Package status produces point-in-time snapshots of cluster and container
// state. Snapshots are recomputed on every call and never cached; a failing
// cluster-level query degrades the snapshot instead of failing it.
package status

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/esapi"
)

// HealthAPI is the slice of the REST client the reporter consults.
// *esapi.Client satisfies it.
type HealthAPI interface {
	Answering(ctx context.Context) bool
	ClusterHealth(ctx context.Context) (*esapi.ClusterHealth, error)
	CatNodes(ctx context.Context) ([]esapi.NodeInfo, error)
}

// ClusterStatus is one read of the deployment. ContainerStates is always
// populated; the cluster section is present only when the deeper query
// succeeded, otherwise ClusterQueryErr explains why it is absent.
type ClusterStatus struct {
	ContainerStates map[string]string
	Cluster         *esapi.ClusterHealth
	Nodes           []esapi.NodeInfo
	ClusterQueryErr string
}

// Reporter queries container state through the runtime and cluster health
// through the REST API.
type Reporter struct {
	rt         connector.Runtime
	api        HealthAPI
	containers []string
}

// NewReporter builds a reporter for the named containers, in display order.
// api may be nil, in which case only container state is reported.
func NewReporter(rt connector.Runtime, api HealthAPI, containers []string) *Reporter {
	return &Reporter{rt: rt, api: api, containers: containers}
}

// Snapshot reads current state. Container-level state always succeeds or
// the whole call errors; the cluster-level query is attempted only when at
// least one expected container runs and the endpoint answers, and its
// failure only marks the snapshot as degraded.
func (r *Reporter) Snapshot(ctx context.Context) (*ClusterStatus, error) {
	snap := &ClusterStatus{ContainerStates: make(map[string]string, len(r.containers))}

	anyRunning := false
	for _, name := range r.containers {
		st, err := r.rt.ContainerState(ctx, name)
		if err != nil {
			return nil, err
		}
		snap.ContainerStates[name] = st.State
		if st.State == connector.StateRunning {
			anyRunning = true
		}
	}

	if !anyRunning || r.api == nil {
		snap.ClusterQueryErr = "cluster query unavailable: no expected container is running"
		if r.api == nil {
			snap.ClusterQueryErr = "cluster query unavailable: no endpoint configured"
		}
		return snap, nil
	}
	if !r.api.Answering(ctx) {
		snap.ClusterQueryErr = "cluster query unavailable: endpoint not answering"
		return snap, nil
	}

	health, err := r.api.ClusterHealth(ctx)
	if err != nil {
		snap.ClusterQueryErr = fmt.Sprintf("cluster query unavailable: %v", err)
		return snap, nil
	}
	snap.Cluster = health

	nodes, err := r.api.CatNodes(ctx)
	if err != nil {
		// Health answered; a node-list failure still degrades only the
		// node section.
		snap.ClusterQueryErr = fmt.Sprintf("node list unavailable: %v", err)
		return snap, nil
	}
	snap.Nodes = nodes
	return snap, nil
}

// Render writes the snapshot as borderless tables.
func (r *Reporter) Render(w io.Writer, snap *ClusterStatus) {
	ct := newTable(w)
	ct.SetHeader([]string{"CONTAINER", "STATE"})
	for _, name := range r.containers {
		ct.Append([]string{name, colorState(snap.ContainerStates[name])})
	}
	ct.Render()
	fmt.Fprintln(w)

	if snap.Cluster != nil {
		ht := newTable(w)
		ht.SetHeader([]string{"CLUSTER", "HEALTH", "NODES"})
		ht.Append([]string{
			snap.Cluster.ClusterName,
			colorHealth(snap.Cluster.Status),
			strconv.FormatInt(snap.Cluster.NodeCount, 10),
		})
		ht.Render()
		fmt.Fprintln(w)
	}

	if len(snap.Nodes) > 0 {
		nt := newTable(w)
		nt.SetHeader([]string{"NODE", "IP", "ROLES", "MASTER"})
		for _, n := range snap.Nodes {
			master := ""
			if n.Master {
				master = "*"
			}
			nt.Append([]string{n.Name, n.IP, n.Roles, master})
		}
		nt.Render()
		fmt.Fprintln(w)
	}

	if snap.ClusterQueryErr != "" {
		fmt.Fprintln(w, color.YellowString(snap.ClusterQueryErr))
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetBorder(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetTablePadding("\t")
	t.SetNoWhiteSpace(true)
	return t
}

func colorState(state string) string {
	switch state {
	case connector.StateRunning:
		return color.GreenString(state)
	case connector.StateExited:
		return color.RedString(state)
	default:
		return color.YellowString(connector.StateMissing)
	}
}

func colorHealth(status string) string {
	switch status {
	case "green":
		return color.GreenString(status)
	case "yellow":
		return color.YellowString(status)
	case "red":
		return color.RedString(status)
	default:
		return status
	}
}
