package cluster

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
	"github.com/mensylisir/esxm/pkg/runner"
)

var addNodeCmd = &cobra.Command{
	Use:   "add-node",
	Short: "Join this host to an existing cluster as an additional node",
	Long: `Start an additional Elasticsearch node on this host and wait until the
master reports it as joined. The certificate bundle exported from the
master must be imported first ('esxm certs import').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()

		d, cleanup, err := buildDeployment(cmd, common.RoleData)
		if err != nil {
			return err
		}
		defer cleanup()

		log.Infof("Joining node %q to cluster %q via master %s",
			d.Cfg.NodeName, d.Cfg.ClusterName, d.Cfg.MasterNodeIP)
		report, err := runner.NewPhaseRunner(log).Run(cmd.Context(), common.RoleData, d.NodePhases())
		printReport(log, report)
		if err != nil {
			return err
		}

		log.Successf("Node %q joined cluster %q", d.Cfg.NodeName, d.Cfg.ClusterName)
		return nil
	},
}

func init() {
	ClusterCmd.AddCommand(addNodeCmd)
}
