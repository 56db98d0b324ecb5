package task

import (
	"context"
	"fmt"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/runner"
)

// NodePhases joins an additional node to an existing cluster. The imported
// certificate bundle is a hard precondition, checked before any container
// work starts.
func (d *Deployment) NodePhases() []runner.Phase {
	cfg := d.Cfg
	nodeName := NodeContainer(cfg)
	network := common.NetworkName(cfg.ClusterName)
	certsVolume := common.CertsVolumeName(cfg.ClusterName)

	return []runner.Phase{
		{
			Name: "require certificate bundle",
			Run: func(ctx context.Context) error {
				exists, err := d.RT.VolumeExists(ctx, certsVolume)
				if err != nil {
					return err
				}
				if !exists {
					return errors.New(errors.KindPreconditionFailed,
						"certificate bundle %q not found; run 'esxm certs import' with the bundle exported from the master", certsVolume)
				}
				return nil
			},
		},
		ensureDirPhase("ensure node data directory", d.dataDir(cfg.NodeName)),
		{
			Name: "ensure cluster network",
			Run: func(ctx context.Context) error {
				return d.RT.EnsureNetwork(ctx, network)
			},
		},
		{
			Name: "stage certificate authority",
			Precheck: func(context.Context) (bool, error) {
				_, ok := FindCACert(d.certsExportDir())
				return ok, nil
			},
			Run: func(ctx context.Context) error {
				return d.RT.CopyFromVolume(ctx, certsVolume, d.certsExportDir())
			},
		},
		{
			Name:     "start node",
			Precheck: d.runningPrecheck(nodeName),
			Run: func(ctx context.Context) error {
				return d.RT.StartContainer(ctx, d.nodeSpec(nodeName, network, certsVolume))
			},
		},
		{
			Name: "wait for node to join",
			Run: func(ctx context.Context) error {
				master, err := d.masterESClient()
				if err != nil {
					return err
				}
				check := runner.DefaultHealthCheck(
					fmt.Sprintf("node %s joining cluster", cfg.NodeName),
					master.NodeJoined(cfg.NodeName),
				)
				check.InitialDelay = common.DefaultESGraceDelay
				return d.Poller.Poll(ctx, check)
			},
		},
	}
}

func (d *Deployment) nodeSpec(name, network, certsVolume string) connector.ContainerSpec {
	cfg := d.Cfg
	return connector.ContainerSpec{
		Name:  name,
		Image: stackImage(imageElasticsearch, cfg.StackVersion),
		Env: []string{
			"node.name=" + cfg.NodeName,
			"cluster.name=" + cfg.ClusterName,
			"discovery.seed_hosts=" + cfg.MasterNodeIP,
			"network.publish_host=" + cfg.NodeIP,
			"node.roles=data,ingest",
			"ELASTIC_PASSWORD=" + cfg.Credentials.Password,
			"bootstrap.memory_lock=true",
			"xpack.security.enabled=true",
			"xpack.security.http.ssl.enabled=true",
			"xpack.security.transport.ssl.enabled=true",
		},
		Ports: map[string]string{
			fmt.Sprint(cfg.Ports.ES):          "9200",
			fmt.Sprint(cfg.Ports.ESTransport): "9300",
		},
		Binds: []string{
			d.dataDir(cfg.NodeName) + ":" + esDataMount,
			certsVolume + ":" + esCertsMount,
		},
		Network:          network,
		MemLimit:         cfg.MemLimit,
		MemlockUnlimited: true,
	}
}
