package cluster

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
	"github.com/mensylisir/esxm/pkg/runner"
)

var deployMasterCmd = &cobra.Command{
	Use:   "deploy-master",
	Short: "Deploy the master node with Kibana and a Fleet server",
	Long: `Deploy the master role on this host: Elasticsearch, Kibana and a Fleet
server as docker containers, with shared certificates in a named volume.
Phases are idempotent; re-run the command after a failure to resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()

		d, cleanup, err := buildDeployment(cmd, common.RoleMaster)
		if err != nil {
			return err
		}
		defer cleanup()

		log.Infof("Deploying master for cluster %q on %s", d.Cfg.ClusterName, d.Cfg.NodeIP)
		report, err := runner.NewPhaseRunner(log).Run(cmd.Context(), common.RoleMaster, d.MasterPhases())
		printReport(log, report)
		if err != nil {
			return err
		}

		log.Successf("Master deployed. Elasticsearch: %s  Kibana: %s",
			d.Cfg.ESEndpoint(), d.Cfg.KibanaEndpoint())
		return nil
	},
}

func init() {
	ClusterCmd.AddCommand(deployMasterCmd)
}

// printReport summarizes phase outcomes after a run, successful or not.
func printReport(log *logger.Logger, report *runner.Report) {
	if report == nil {
		return
	}
	for _, p := range report.Phases {
		log.Debugf("  %-40s %s", p.Name, p.Status)
	}
}
