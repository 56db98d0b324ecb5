package cluster

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
	"github.com/mensylisir/esxm/pkg/runner"
)

var removeMasterCmd = &cobra.Command{
	Use:   "remove-master",
	Short: "Remove the master's containers (volumes and data are preserved)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, common.RoleMaster, nil)
	},
}

var removeNodeCmd = &cobra.Command{
	Use:   "remove-node",
	Short: "Remove this host's node container (volumes and data are preserved)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, common.RoleData, nil)
	},
}

// runRemove stops and removes the role's containers after confirmation.
// confirm may be injected by tests; nil falls back to stdin.
func runRemove(cmd *cobra.Command, role string, confirm ConfirmFunc) error {
	log := logger.Get()

	d, cleanup, err := buildDeployment(cmd, role)
	if err != nil {
		return err
	}
	defer cleanup()

	prompt := fmt.Sprintf("Remove the %s containers of cluster %q? Data directories and volumes are kept", role, d.Cfg.ClusterName)
	if err := confirmOrCancel(cmd, confirm, prompt); err != nil {
		return err
	}

	report, err := runner.NewPhaseRunner(log).Run(cmd.Context(), role, d.RemovePhases())
	printReport(log, report)
	if err != nil {
		return err
	}
	log.Successf("Removed %s containers of cluster %q; re-deploying will reuse the preserved data", role, d.Cfg.ClusterName)
	return nil
}

func init() {
	ClusterCmd.AddCommand(removeMasterCmd)
	ClusterCmd.AddCommand(removeNodeCmd)
}
