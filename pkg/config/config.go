// Package config loads and validates the deployment configuration for a
// single esxm invocation. Configuration comes from an env-style key/value
// file merged with the process environment (process environment wins), and
// is immutable once loaded: every component receives the resulting
// DeploymentConfig value, there is no ambient lookup.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/errors"
)

// Recognized configuration keys.
const (
	KeyClusterName     = "CLUSTER_NAME"
	KeyNodeName        = "NODE_NAME"
	KeyNodeIP          = "NODE_IP"
	KeyMasterNodeIP    = "MASTER_NODE_IP"
	KeyESPort          = "ES_PORT"
	KeyESTransportPort = "ES_TRANSPORT_PORT"
	KeyKibanaPort      = "KIBANA_PORT"
	KeyFleetPort       = "FLEET_PORT"
	KeyElasticPassword = "ELASTIC_PASSWORD"
	KeyStackVersion    = "STACK_VERSION"
	KeyLicense         = "LICENSE"
	KeyMemLimit        = "MEM_LIMIT"
)

// Ports holds the host ports the cluster services bind.
type Ports struct {
	ES          int
	ESTransport int
	Kibana      int
	Fleet       int
}

// Credentials carry the basic-auth identity used for cluster API calls.
type Credentials struct {
	Username string
	Password string
}

// DeploymentConfig describes one deployment role on the invoking host.
// Immutable after Load.
type DeploymentConfig struct {
	ClusterName  string
	NodeName     string
	NodeRole     string // common.RoleMaster or common.RoleData
	NodeIP       string
	MasterNodeIP string // required for data nodes
	Ports        Ports
	Credentials  Credentials
	StackVersion string
	License      string
	MemLimit     int64 // bytes, 0 = unlimited
}

// Load reads the env file at path, merges the process environment on top,
// and validates the result for the given role. A missing file yields a
// ConfigMissing error; any violated requirement yields ConfigInvalid with
// every violation listed.
func Load(path, role string) (*DeploymentConfig, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.KindConfigMissing, "configuration file %s not found", path)
		}
		return nil, errors.Wrap(err, errors.KindConfigMissing, "reading configuration file %s", path)
	}

	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return values[key]
	}

	var v ValidationErrors

	cfg := &DeploymentConfig{
		ClusterName:  get(KeyClusterName),
		NodeName:     get(KeyNodeName),
		NodeRole:     role,
		NodeIP:       get(KeyNodeIP),
		MasterNodeIP: get(KeyMasterNodeIP),
		Ports: Ports{
			ES:          parsePort(get(KeyESPort), common.DefaultESPort, KeyESPort, &v),
			ESTransport: parsePort(get(KeyESTransportPort), common.DefaultESTransportPort, KeyESTransportPort, &v),
			Kibana:      parsePort(get(KeyKibanaPort), common.DefaultKibanaPort, KeyKibanaPort, &v),
			Fleet:       parsePort(get(KeyFleetPort), common.DefaultFleetPort, KeyFleetPort, &v),
		},
		Credentials: Credentials{
			Username: "elastic",
			Password: get(KeyElasticPassword),
		},
		StackVersion: get(KeyStackVersion),
		License:      strings.ToLower(defaultString(get(KeyLicense), common.LicenseBasic)),
	}

	cfg.MemLimit = parseMemLimit(get(KeyMemLimit), &v)

	validate(cfg, role, &v)
	if v.HasErrors() {
		return nil, errors.New(errors.KindConfigInvalid, "%s", v.Error())
	}
	return cfg, nil
}

func validate(cfg *DeploymentConfig, role string, v *ValidationErrors) {
	if role != common.RoleMaster && role != common.RoleData {
		v.Add("unknown deployment role %q", role)
	}
	if cfg.ClusterName == "" {
		v.AddField(KeyClusterName, "required")
	}
	if cfg.NodeName == "" {
		v.AddField(KeyNodeName, "required")
	}
	if cfg.NodeIP == "" {
		v.AddField(KeyNodeIP, "required")
	} else if net.ParseIP(cfg.NodeIP) == nil {
		v.AddField(KeyNodeIP, fmt.Sprintf("%q is not a valid IP address", cfg.NodeIP))
	}
	if cfg.Credentials.Password == "" {
		v.AddField(KeyElasticPassword, "required")
	}
	if cfg.StackVersion == "" {
		v.AddField(KeyStackVersion, "required")
	} else if _, err := semver.NewVersion(cfg.StackVersion); err != nil {
		v.AddField(KeyStackVersion, fmt.Sprintf("%q is not a valid version: %v", cfg.StackVersion, err))
	}
	if cfg.License != common.LicenseBasic && cfg.License != common.LicenseTrial {
		v.AddField(KeyLicense, fmt.Sprintf("must be %q or %q", common.LicenseBasic, common.LicenseTrial))
	}

	if role == common.RoleData {
		if cfg.MasterNodeIP == "" {
			v.AddField(KeyMasterNodeIP, "required for an additional node")
		} else if net.ParseIP(cfg.MasterNodeIP) == nil {
			v.AddField(KeyMasterNodeIP, fmt.Sprintf("%q is not a valid IP address", cfg.MasterNodeIP))
		}
	}
}

func parsePort(raw string, def int, key string, v *ValidationErrors) int {
	if raw == "" {
		return def
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > 65535 {
		v.AddField(key, fmt.Sprintf("%q is not a valid TCP port", raw))
		return def
	}
	return p
}

// parseMemLimit accepts a plain byte count or a kb/mb/gb suffixed quantity.
func parseMemLimit(raw string, v *ValidationErrors) int64 {
	if raw == "" {
		return 0
	}
	s := strings.ToLower(strings.TrimSpace(raw))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "kb"):
		mult, s = 1<<10, strings.TrimSuffix(s, "kb")
	case strings.HasSuffix(s, "mb"):
		mult, s = 1<<20, strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "gb"):
		mult, s = 1<<30, strings.TrimSuffix(s, "gb")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		v.AddField(KeyMemLimit, fmt.Sprintf("%q is not a valid memory quantity", raw))
		return 0
	}
	return n * mult
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ESEndpoint returns the HTTPS base URL of the Elasticsearch API for this
// node.
func (c *DeploymentConfig) ESEndpoint() string {
	return fmt.Sprintf("https://%s:%d", c.NodeIP, c.Ports.ES)
}

// MasterESEndpoint returns the HTTPS base URL of the master's Elasticsearch
// API. For the master role it is the node's own endpoint.
func (c *DeploymentConfig) MasterESEndpoint() string {
	if c.NodeRole == common.RoleData && c.MasterNodeIP != "" {
		return fmt.Sprintf("https://%s:%d", c.MasterNodeIP, c.Ports.ES)
	}
	return c.ESEndpoint()
}

// KibanaEndpoint returns the HTTP base URL of the Kibana UI.
func (c *DeploymentConfig) KibanaEndpoint() string {
	return fmt.Sprintf("http://%s:%d", c.NodeIP, c.Ports.Kibana)
}
