package cluster

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/esapi"
	"github.com/mensylisir/esxm/pkg/status"
	"github.com/mensylisir/esxm/pkg/task"
)

var statusRole string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show container and cluster health state",
	Long: `Show the runtime state of this host's expected containers and, when the
cluster API answers, the cluster health and node list. The snapshot is
recomputed on every call; a failing cluster query degrades the output to
container state only instead of failing the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := buildDeployment(cmd, statusRole)
		if err != nil {
			return err
		}
		defer cleanup()

		var api status.HealthAPI
		if client, err := esapi.NewClient(d.Cfg.MasterESEndpoint(), d.Cfg.Credentials, d.CACertPath()); err == nil {
			api = client
		}

		reporter := status.NewReporter(d.RT, api, task.ExpectedContainers(d.Cfg))
		snap, err := reporter.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		reporter.Render(os.Stdout, snap)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRole, "role", common.RoleMaster, "Deployment role on this host (master or data)")
	ClusterCmd.AddCommand(statusCmd)
}
