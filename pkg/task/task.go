// Package task assembles the per-role phase lists out of the generic
// runner, the container runtime and the REST probes. Phases are built once
// per invocation from an immutable DeploymentConfig; nothing here keeps
// state between invocations.
package task

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/config"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/esapi"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/runner"
)

// Stack image repositories.
const (
	imageElasticsearch = "docker.elastic.co/elasticsearch/elasticsearch"
	imageKibana        = "docker.elastic.co/kibana/kibana"
	imageElasticAgent  = "docker.elastic.co/elastic-agent/elastic-agent"
)

// Container-side mount points.
const (
	esDataMount    = "/usr/share/elasticsearch/data"
	esCertsMount   = "/usr/share/elasticsearch/config/certs"
	kibanaCertsMnt = "/usr/share/kibana/config/certs"
	agentCertsMnt  = "/usr/share/elastic-agent/certs"
)

// Deployment binds one invocation's collaborators together.
type Deployment struct {
	Cfg    *config.DeploymentConfig
	RT     connector.Runtime
	Poller *runner.HealthPoller

	// WorkDir is where ./data and ./certs-export live. Defaults to the
	// current directory.
	WorkDir string
}

func (d *Deployment) workDir() string {
	if d.WorkDir != "" {
		return d.WorkDir
	}
	return "."
}

func (d *Deployment) dataDir(service string) string {
	return filepath.Join(d.workDir(), common.DataDirName, service)
}

func (d *Deployment) certsExportDir() string {
	return filepath.Join(d.workDir(), common.CertsExportDirName)
}

// MasterContainers returns the expected master container names in bring-up
// order.
func MasterContainers(cfg *config.DeploymentConfig) []string {
	names := make([]string, 0, len(common.MasterServices))
	for _, svc := range common.MasterServices {
		names = append(names, common.ContainerName(cfg.ClusterName, svc))
	}
	return names
}

// NodeContainer returns the container name of an additional node.
func NodeContainer(cfg *config.DeploymentConfig) string {
	return common.ContainerName(cfg.ClusterName, cfg.NodeName)
}

// ExpectedContainers returns the containers the given role is responsible
// for.
func ExpectedContainers(cfg *config.DeploymentConfig) []string {
	if cfg.NodeRole == common.RoleData {
		return []string{NodeContainer(cfg)}
	}
	return MasterContainers(cfg)
}

// esClient builds a REST client against the local node's Elasticsearch
// endpoint, trusting the staged bundle CA when present.
func (d *Deployment) esClient() (*esapi.Client, error) {
	return esapi.NewClient(d.Cfg.ESEndpoint(), d.Cfg.Credentials, d.caCertPath())
}

// masterESClient builds a REST client against the master's endpoint.
func (d *Deployment) masterESClient() (*esapi.Client, error) {
	return esapi.NewClient(d.Cfg.MasterESEndpoint(), d.Cfg.Credentials, d.caCertPath())
}

// kibanaClient builds a REST client against the Kibana UI endpoint.
func (d *Deployment) kibanaClient() (*esapi.Client, error) {
	return esapi.NewClient(d.Cfg.KibanaEndpoint(), d.Cfg.Credentials, "")
}

// fleetClient builds a REST client against the Fleet server endpoint.
func (d *Deployment) fleetClient() (*esapi.Client, error) {
	endpoint := fmt.Sprintf("https://%s:%d", d.Cfg.NodeIP, d.Cfg.Ports.Fleet)
	return esapi.NewClient(endpoint, d.Cfg.Credentials, d.caCertPath())
}

// CACertPath returns the staged bundle CA certificate path, or empty when
// none has been staged yet.
func (d *Deployment) CACertPath() string { return d.caCertPath() }

// caCertPath locates the bundle CA in the export staging directory, or
// returns empty when none has been staged yet.
func (d *Deployment) caCertPath() string {
	path, _ := FindCACert(d.certsExportDir())
	return path
}

// FindCACert walks dir for a ca.crt file. The bundle layout is opaque, so
// the name is the only assumption made.
func FindCACert(dir string) (string, bool) {
	var found string
	_ = filepath.WalkDir(dir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !de.IsDir() && de.Name() == "ca.crt" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// ensureDirPhase creates a per-service data directory; an existing
// directory satisfies the precheck.
func ensureDirPhase(name, dir string) runner.Phase {
	return runner.Phase{
		Name: name,
		Precheck: func(context.Context) (bool, error) {
			info, err := os.Stat(dir)
			if err == nil && info.IsDir() {
				return true, nil
			}
			return false, nil
		},
		Run: func(context.Context) error {
			if err := os.MkdirAll(dir, 0o770); err != nil {
				return errors.Wrap(err, errors.KindPhaseFailed, "creating %s", dir)
			}
			return nil
		},
	}
}

// runningPrecheck reports done when the named container already runs.
func (d *Deployment) runningPrecheck(name string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		st, err := d.RT.ContainerState(ctx, name)
		if err != nil {
			return false, err
		}
		return st.State == connector.StateRunning, nil
	}
}

func stackImage(repo, version string) string {
	return repo + ":" + strings.TrimPrefix(version, "v")
}
