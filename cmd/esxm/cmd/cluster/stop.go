package cluster

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
	"github.com/mensylisir/esxm/pkg/runner"
)

var stopMasterCmd = &cobra.Command{
	Use:   "stop-master",
	Short: "Stop the master's containers (data is preserved)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(cmd, common.RoleMaster)
	},
}

var stopNodeCmd = &cobra.Command{
	Use:   "stop-node",
	Short: "Stop this host's node container (data is preserved)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(cmd, common.RoleData)
	},
}

func runStop(cmd *cobra.Command, role string) error {
	log := logger.Get()

	d, cleanup, err := buildDeployment(cmd, role)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := runner.NewPhaseRunner(log).Run(cmd.Context(), role, d.StopPhases())
	printReport(log, report)
	if err != nil {
		return err
	}
	log.Successf("Stopped %s containers of cluster %q; data directories are preserved", role, d.Cfg.ClusterName)
	return nil
}

func init() {
	ClusterCmd.AddCommand(stopMasterCmd)
	ClusterCmd.AddCommand(stopNodeCmd)
}
