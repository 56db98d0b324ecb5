package common

import "time"

const (
	// DefaultEnvFile is the key/value configuration file read when --env-file
	// is not given.
	DefaultEnvFile = ".env"

	// DataDirName is the root of the per-service persistent directories
	// created next to the invocation, e.g. ./data/es01.
	DataDirName = "data"

	// CertsExportDirName is the staging directory certificate bundles are
	// exported into.
	CertsExportDirName = "certs-export"

	// CertsArchiveName is the portable archive written next to the staging
	// directory on export.
	CertsArchiveName = "certs-bundle.tar.gz"
)

// Expected service names. Container names are derived as
// <cluster>-<service>; an additional node's container is <cluster>-<node>.
const (
	ServiceElasticsearch = "es01"
	ServiceKibana        = "kibana"
	ServiceFleetServer   = "fleet-server"
)

const (
	// CertsVolumeSuffix is appended to the cluster name to form the docker
	// named volume holding the shared certificate bundle.
	CertsVolumeSuffix = "_certs"

	// NetworkSuffix is appended to the cluster name to form the docker
	// network all cluster containers attach to.
	NetworkSuffix = "-net"
)

// Default ports, overridable through configuration.
const (
	DefaultESPort          = 9200
	DefaultESTransportPort = 9300
	DefaultKibanaPort      = 5601
	DefaultFleetPort       = 8220
)

// Poll budgets: a fixed 10s interval capped at 30 attempts, preceded by an
// un-polled grace delay while the server processes initialize. All three are
// plumbed as parameters; these are only the defaults.
const (
	DefaultPollInterval    = 10 * time.Second
	DefaultPollMaxAttempts = 30
	DefaultESGraceDelay    = 20 * time.Second
	DefaultUIGraceDelay    = 15 * time.Second
)

// Phase status vocabulary.
const (
	StatusPending = "Pending"
	StatusSkipped = "Skipped"
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// Roles a deployment config can describe.
const (
	RoleMaster = "master"
	RoleData   = "data"
)

// Licenses accepted for the stack containers.
const (
	LicenseBasic = "basic"
	LicenseTrial = "trial"
)

// MasterServices lists the services a master deployment is expected to run,
// in bring-up order.
var MasterServices = []string{ServiceElasticsearch, ServiceKibana, ServiceFleetServer}

// ContainerName derives the container name for a service of a cluster.
func ContainerName(clusterName, service string) string {
	return clusterName + "-" + service
}

// CertsVolumeName derives the certificate bundle volume name for a cluster.
func CertsVolumeName(clusterName string) string {
	return clusterName + CertsVolumeSuffix
}

// NetworkName derives the docker network name for a cluster.
func NetworkName(clusterName string) string {
	return clusterName + NetworkSuffix
}
