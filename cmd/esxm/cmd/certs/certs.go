// Package certs holds the certificate bundle subcommands. The bundle is
// the certificate material every node of the cluster shares for mutual
// TLS; export/import move it between the docker volume on the master and a
// portable archive carried to additional nodes.
package certs

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/config"
	"github.com/mensylisir/esxm/pkg/connector"
)

// CertsCmd is the parent of the certificate bundle commands.
var CertsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Export and import the cluster certificate bundle",
}

// AddCertsCommand attaches the certs command group to the root command.
func AddCertsCommand(root *cobra.Command) {
	root.AddCommand(CertsCmd)
}

// loadBundleContext resolves the bundle volume name and a runtime handle.
// Only CLUSTER_NAME matters here, but the full config is validated so a
// broken file fails fast.
func loadBundleContext(cmd *cobra.Command) (string, connector.Runtime, func(), error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile, common.RoleMaster)
	if err != nil {
		return "", nil, nil, err
	}
	rt, err := connector.NewDockerRuntime()
	if err != nil {
		return "", nil, nil, err
	}
	return common.CertsVolumeName(cfg.ClusterName), rt, func() { _ = rt.Close() }, nil
}
