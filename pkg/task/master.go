package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/runner"
)

// MasterPhases is the full master bring-up: storage before containers,
// containers before health checks, dependent services after their
// dependencies are confirmed ready.
func (d *Deployment) MasterPhases() []runner.Phase {
	cfg := d.Cfg
	esName := common.ContainerName(cfg.ClusterName, common.ServiceElasticsearch)
	kibanaName := common.ContainerName(cfg.ClusterName, common.ServiceKibana)
	fleetName := common.ContainerName(cfg.ClusterName, common.ServiceFleetServer)
	network := common.NetworkName(cfg.ClusterName)
	certsVolume := common.CertsVolumeName(cfg.ClusterName)

	phases := []runner.Phase{
		ensureDirPhase("ensure elasticsearch data directory", d.dataDir(common.ServiceElasticsearch)),
		ensureDirPhase("ensure kibana data directory", d.dataDir(common.ServiceKibana)),
		ensureDirPhase("ensure fleet-server data directory", d.dataDir(common.ServiceFleetServer)),
		{
			Name: "ensure cluster network",
			Run: func(ctx context.Context) error {
				return d.RT.EnsureNetwork(ctx, network)
			},
		},
		{
			Name: "ensure certificate volume",
			Run: func(ctx context.Context) error {
				return d.RT.EnsureVolume(ctx, certsVolume)
			},
		},
		{
			Name:     "start elasticsearch",
			Precheck: d.runningPrecheck(esName),
			Run: func(ctx context.Context) error {
				return d.RT.StartContainer(ctx, d.elasticsearchSpec(esName, network, certsVolume))
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
			Name: "wait for elasticsearch",
			Run: func(ctx context.Context) error {
				es, err := d.esClient()
				if err != nil {
					return err
				}
				check := runner.DefaultHealthCheck("elasticsearch", es.HealthAtLeast("yellow"))
				check.InitialDelay = common.DefaultESGraceDelay
				return d.Poller.Poll(ctx, check)
			},
		},
		{
			Name:     "start kibana",
			Precheck: d.runningPrecheck(kibanaName),
			Run: func(ctx context.Context) error {
				kibanaPassword, err := d.resetKibanaSystemPassword(ctx, esName)
				if err != nil {
					return err
				}
				return d.RT.StartContainer(ctx, d.kibanaSpec(kibanaName, esName, network, certsVolume, kibanaPassword))
			},
		},
		{
			Name: "wait for kibana",
			Run: func(ctx context.Context) error {
				kb, err := d.kibanaClient()
				if err != nil {
					return err
				}
				check := runner.DefaultHealthCheck("kibana", kb.KibanaAvailable())
				check.InitialDelay = common.DefaultUIGraceDelay
				return d.Poller.Poll(ctx, check)
			},
		},
		{
			Name:     "start fleet-server",
			Precheck: d.runningPrecheck(fleetName),
			Run: func(ctx context.Context) error {
				return d.RT.StartContainer(ctx, d.fleetSpec(fleetName, esName, kibanaName, network, certsVolume))
			},
		},
		{
			Name: "wait for fleet-server",
			Run: func(ctx context.Context) error {
				fl, err := d.fleetClient()
				if err != nil {
					return err
				}
				check := runner.DefaultHealthCheck("fleet-server", fl.FleetHealthy())
				check.InitialDelay = common.DefaultUIGraceDelay
				return d.Poller.Poll(ctx, check)
			},
		},
		{
			Name: "verify cluster health",
			Run: func(ctx context.Context) error {
				es, err := d.esClient()
				if err != nil {
					return err
				}
				health, err := es.ClusterHealth(ctx)
				if err != nil {
					return err
				}
				if health.Status == "red" {
					return errors.New(errors.KindPhaseFailed, "cluster %q is red after bring-up", health.ClusterName)
				}
				return nil
			},
		},
	}
	return phases
}

func (d *Deployment) elasticsearchSpec(name, network, certsVolume string) connector.ContainerSpec {
	cfg := d.Cfg
	return connector.ContainerSpec{
		Name:  name,
		Image: stackImage(imageElasticsearch, cfg.StackVersion),
		Env: []string{
			"node.name=" + cfg.NodeName,
			"cluster.name=" + cfg.ClusterName,
			"cluster.initial_master_nodes=" + cfg.NodeName,
			"network.publish_host=" + cfg.NodeIP,
			"ELASTIC_PASSWORD=" + cfg.Credentials.Password,
			"bootstrap.memory_lock=true",
			"xpack.security.enabled=true",
			"xpack.security.http.ssl.enabled=true",
			"xpack.security.transport.ssl.enabled=true",
			"xpack.license.self_generated.type=" + cfg.License,
		},
		Ports: map[string]string{
			fmt.Sprint(cfg.Ports.ES):          "9200",
			fmt.Sprint(cfg.Ports.ESTransport): "9300",
		},
		Binds: []string{
			d.dataDir(common.ServiceElasticsearch) + ":" + esDataMount,
			certsVolume + ":" + esCertsMount,
		},
		Network:          network,
		MemLimit:         cfg.MemLimit,
		MemlockUnlimited: true,
	}
}

func (d *Deployment) kibanaSpec(name, esName, network, certsVolume, kibanaPassword string) connector.ContainerSpec {
	cfg := d.Cfg
	return connector.ContainerSpec{
		Name:  name,
		Image: stackImage(imageKibana, cfg.StackVersion),
		Env: []string{
			"SERVERNAME=" + name,
			fmt.Sprintf("ELASTICSEARCH_HOSTS=https://%s:9200", esName),
			"ELASTICSEARCH_USERNAME=kibana_system",
			"ELASTICSEARCH_PASSWORD=" + kibanaPassword,
			"ELASTICSEARCH_SSL_CERTIFICATEAUTHORITIES=" + kibanaCertsMnt + "/ca/ca.crt",
		},
		Ports: map[string]string{
			fmt.Sprint(cfg.Ports.Kibana): "5601",
		},
		Binds: []string{
			d.dataDir(common.ServiceKibana) + ":/usr/share/kibana/data",
			certsVolume + ":" + kibanaCertsMnt,
		},
		Network:  network,
		MemLimit: cfg.MemLimit,
	}
}

func (d *Deployment) fleetSpec(name, esName, kibanaName, network, certsVolume string) connector.ContainerSpec {
	cfg := d.Cfg
	return connector.ContainerSpec{
		Name:  name,
		Image: stackImage(imageElasticAgent, cfg.StackVersion),
		Env: []string{
			"FLEET_SERVER_ENABLE=1",
			fmt.Sprintf("FLEET_SERVER_ELASTICSEARCH_HOST=https://%s:9200", esName),
			"FLEET_SERVER_ELASTICSEARCH_CA=" + agentCertsMnt + "/ca/ca.crt",
			fmt.Sprintf("KIBANA_HOST=http://%s:5601", kibanaName),
			"KIBANA_FLEET_SETUP=1",
			"KIBANA_FLEET_USERNAME=" + cfg.Credentials.Username,
			"KIBANA_FLEET_PASSWORD=" + cfg.Credentials.Password,
			fmt.Sprintf("FLEET_URL=https://%s:%d", cfg.NodeIP, cfg.Ports.Fleet),
		},
		Ports: map[string]string{
			fmt.Sprint(cfg.Ports.Fleet): "8220",
		},
		Binds: []string{
			d.dataDir(common.ServiceFleetServer) + ":/usr/share/elastic-agent/state",
			certsVolume + ":" + agentCertsMnt,
		},
		Network:  network,
		MemLimit: cfg.MemLimit,
	}
}

// resetKibanaSystemPassword rotates the kibana_system builtin user's
// password inside the running elasticsearch container and returns it. The
// bundled tool prints the new password on stdout in batch mode.
func (d *Deployment) resetKibanaSystemPassword(ctx context.Context, esName string) (string, error) {
	out, err := d.RT.Exec(ctx, esName, []string{
		"bin/elasticsearch-reset-password", "-u", "kibana_system", "--batch", "--silent",
	})
	if err != nil {
		return "", errors.Wrap(err, errors.KindPhaseFailed, "resetting kibana_system password")
	}
	password := strings.TrimSpace(out)
	if password == "" {
		return "", errors.New(errors.KindPhaseFailed, "kibana_system password reset produced no output")
	}
	return password, nil
}
