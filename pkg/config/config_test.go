package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/errors"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const masterEnv = `CLUSTER_NAME=es-demo
NODE_NAME=es01
NODE_IP=10.0.0.2
ELASTIC_PASSWORD=s3cret-pass
STACK_VERSION=8.14.3
`

func TestLoad_MasterDefaults(t *testing.T) {
	cfg, err := Load(writeEnvFile(t, masterEnv), common.RoleMaster)
	require.NoError(t, err)

	assert.Equal(t, "es-demo", cfg.ClusterName)
	assert.Equal(t, "es01", cfg.NodeName)
	assert.Equal(t, common.RoleMaster, cfg.NodeRole)
	assert.Equal(t, "10.0.0.2", cfg.NodeIP)
	assert.Equal(t, common.DefaultESPort, cfg.Ports.ES)
	assert.Equal(t, common.DefaultESTransportPort, cfg.Ports.ESTransport)
	assert.Equal(t, common.DefaultKibanaPort, cfg.Ports.Kibana)
	assert.Equal(t, common.DefaultFleetPort, cfg.Ports.Fleet)
	assert.Equal(t, "elastic", cfg.Credentials.Username)
	assert.Equal(t, "s3cret-pass", cfg.Credentials.Password)
	assert.Equal(t, common.LicenseBasic, cfg.License)
	assert.EqualValues(t, 0, cfg.MemLimit)
	assert.Equal(t, "https://10.0.0.2:9200", cfg.ESEndpoint())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"), common.RoleMaster)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfigMissing, errors.KindOf(err))
}

func TestLoad_DataNodeRequiresMasterIP(t *testing.T) {
	env := `CLUSTER_NAME=es-demo
NODE_NAME=node2
NODE_IP=10.0.0.3
ELASTIC_PASSWORD=s3cret-pass
STACK_VERSION=8.14.3
`
	_, err := Load(writeEnvFile(t, env), common.RoleData)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfigInvalid, errors.KindOf(err))
	assert.Contains(t, err.Error(), KeyMasterNodeIP)
}

func TestLoad_DataNodeComplete(t *testing.T) {
	env := masterEnv + "NODE_NAME=node2\nNODE_IP=10.0.0.3\nMASTER_NODE_IP=10.0.0.2\n"
	cfg, err := Load(writeEnvFile(t, env), common.RoleData)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", cfg.MasterNodeIP)
	assert.Equal(t, "https://10.0.0.2:9200", cfg.MasterESEndpoint())
	assert.Equal(t, "https://10.0.0.3:9200", cfg.ESEndpoint())
}

func TestLoad_AccumulatesAllViolations(t *testing.T) {
	_, err := Load(writeEnvFile(t, "LICENSE=gold\n"), common.RoleMaster)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfigInvalid, errors.KindOf(err))
	for _, key := range []string{KeyClusterName, KeyNodeName, KeyNodeIP, KeyElasticPassword, KeyStackVersion, KeyLicense} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		line string
		key  string
	}{
		{"bad node ip", "NODE_IP=not-an-ip\n", KeyNodeIP},
		{"bad version", "STACK_VERSION=latest.greatest\n", KeyStackVersion},
		{"bad port", "ES_PORT=99999\n", KeyESPort},
		{"bad mem limit", "MEM_LIMIT=plenty\n", KeyMemLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := `CLUSTER_NAME=c
NODE_NAME=n
ELASTIC_PASSWORD=p
STACK_VERSION=8.14.3
NODE_IP=10.0.0.2
` + tc.line
			_, err := Load(writeEnvFile(t, env), common.RoleMaster)
			require.Error(t, err)
			assert.Equal(t, errors.KindConfigInvalid, errors.KindOf(err))
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestParseMemLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"1073741824", 1 << 30},
		{"512mb", 512 << 20},
		{"2gb", 2 << 30},
		{"64kb", 64 << 10},
	}
	for _, tc := range cases {
		var v ValidationErrors
		got := parseMemLimit(tc.raw, &v)
		assert.False(t, v.HasErrors(), "unexpected violation for %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}

func TestLoad_ProcessEnvWins(t *testing.T) {
	t.Setenv(KeyESPort, "9201")
	cfg, err := Load(writeEnvFile(t, masterEnv+"ES_PORT=9200\n"), common.RoleMaster)
	require.NoError(t, err)
	assert.Equal(t, 9201, cfg.Ports.ES)
}

func TestValidationErrors(t *testing.T) {
	var v ValidationErrors
	assert.False(t, v.HasErrors())
	v.AddField("X", "required")
	v.Add("y is %d", 7)
	assert.True(t, v.HasErrors())
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, "X: required; y is 7", v.Error())
}
