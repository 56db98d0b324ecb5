package task

import (
	"context"
	"fmt"

	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/runner"
)

// StopPhases stops the role's containers in reverse bring-up order. Data
// directories and volumes are untouched.
func (d *Deployment) StopPhases() []runner.Phase {
	containers := ExpectedContainers(d.Cfg)
	phases := make([]runner.Phase, 0, len(containers))
	for i := len(containers) - 1; i >= 0; i-- {
		name := containers[i]
		phases = append(phases, runner.Phase{
			Name: fmt.Sprintf("stop %s", name),
			Precheck: func(ctx context.Context) (bool, error) {
				st, err := d.RT.ContainerState(ctx, name)
				if err != nil {
					return false, err
				}
				return st.State != connector.StateRunning, nil
			},
			Run: func(ctx context.Context) error {
				return d.RT.StopContainer(ctx, name)
			},
		})
	}
	return phases
}

// RemovePhases stops and removes the role's containers. Volumes and the
// ./data tree are preserved: a later deploy of the same role reuses them.
func (d *Deployment) RemovePhases() []runner.Phase {
	phases := d.StopPhases()
	for _, name := range ExpectedContainers(d.Cfg) {
		name := name
		phases = append(phases, runner.Phase{
			Name: fmt.Sprintf("remove %s", name),
			Precheck: func(ctx context.Context) (bool, error) {
				st, err := d.RT.ContainerState(ctx, name)
				if err != nil {
					return false, err
				}
				return st.State == connector.StateMissing, nil
			},
			Run: func(ctx context.Context) error {
				return d.RT.RemoveContainer(ctx, name)
			},
		})
	}
	return phases
}
