package cluster

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/task"
)

var logsRole string

var logsCmd = &cobra.Command{
	Use:   "logs [service]",
	Short: "Print recent container logs",
	Long: `Print the recent logs of one service container, or of every expected
container for the role when no service is named. Service names are es01,
kibana, fleet-server, or the node name for an additional node.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := buildDeployment(cmd, logsRole)
		if err != nil {
			return err
		}
		defer cleanup()

		containers := task.ExpectedContainers(d.Cfg)
		if len(args) == 1 {
			containers = []string{common.ContainerName(d.Cfg.ClusterName, args[0])}
		}

		for _, name := range containers {
			st, err := d.RT.ContainerState(cmd.Context(), name)
			if err != nil {
				return err
			}
			if st.State == connector.StateMissing {
				fmt.Fprintf(os.Stderr, "==> %s: no such container\n", name)
				continue
			}
			out, err := d.RT.ContainerLogs(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Printf("==> %s <==\n%s\n", name, out)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsRole, "role", common.RoleMaster, "Deployment role on this host (master or data)")
	ClusterCmd.AddCommand(logsCmd)
}
