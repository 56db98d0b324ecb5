// Package cluster holds the cluster lifecycle subcommands. Each command
// loads an immutable DeploymentConfig for its role, builds the docker
// runtime and runs the role's phase list; helpers shared by the commands
// live here.
package cluster

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/config"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/runner"
	"github.com/mensylisir/esxm/pkg/task"
)

// ClusterCmd is the parent of all cluster lifecycle commands.
var ClusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Deploy, scale and manage the cluster",
}

// ConfirmFunc asks the operator to approve an action. Injected so commands
// stay testable and headless runs can bypass the prompt.
type ConfirmFunc func(prompt string) (bool, error)

// stdinConfirm reads a yes/no answer from standard input.
func stdinConfirm(prompt string) (bool, error) {
	fmt.Printf("%s (yes/no): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(strings.ToLower(input)) == "yes", nil
}

// flagBool reads a flag that may be inherited from the root command.
func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// buildDeployment loads configuration for role and wires the collaborators
// of one invocation. The returned cleanup closes the runtime connection.
func buildDeployment(cmd *cobra.Command, role string) (*task.Deployment, func(), error) {
	cfg, err := config.Load(flagString(cmd, "env-file"), role)
	if err != nil {
		return nil, nil, err
	}
	rt, err := connector.NewDockerRuntime()
	if err != nil {
		return nil, nil, err
	}

	poller := runner.NewHealthPoller()
	if !flagBool(cmd, "verbose") {
		attachProgress(poller)
	}

	d := &task.Deployment{Cfg: cfg, RT: rt, Poller: poller}
	return d, func() { _ = rt.Close() }, nil
}

// attachProgress renders poll attempts as a progress bar. Verbose runs log
// each attempt instead.
func attachProgress(poller *runner.HealthPoller) {
	var bar *progressbar.ProgressBar
	poller.OnAttempt = func(attempt, max int) {
		if bar == nil || attempt == 1 {
			bar = progressbar.NewOptions(max,
				progressbar.OptionSetDescription("waiting"),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(attempt)
	}
}

// confirmOrCancel runs confirm unless --yes was given; a declined prompt is
// a UserCancelled error so the command exits non-zero without side effects.
func confirmOrCancel(cmd *cobra.Command, confirm ConfirmFunc, prompt string) error {
	if flagBool(cmd, "yes") {
		return nil
	}
	if confirm == nil {
		confirm = stdinConfirm
	}
	ok, err := confirm(prompt)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.KindUserCancelled, "aborted by user")
	}
	return nil
}
