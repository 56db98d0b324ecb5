// Package connector abstracts the container runtime collaborator. Commands
// and phases depend on the Runtime interface; the docker SDK implementation
// lives in docker.go and fakes live in the tests of the packages using it.
package connector

import "context"

// Container states reported by State.
const (
	StateRunning = "running"
	StateExited  = "exited"
	StateMissing = "missing"
)

// ContainerSpec declares one service container.
type ContainerSpec struct {
	Name    string
	Image   string
	Env     []string
	Cmd     []string
	// Ports maps host port to container port, optionally with a /proto
	// suffix on the container side.
	Ports map[string]string
	// Binds are volume or host-path mounts in docker -v syntax.
	Binds []string
	// Network is the docker network the container joins.
	Network string
	// MemLimit caps container memory in bytes. 0 means unlimited.
	MemLimit int64
	// MemlockUnlimited lifts the memlock ulimit, required by the search
	// engine's bootstrap.memory_lock setting.
	MemlockUnlimited bool
}

// ContainerStatus is the runtime-level state of one container.
type ContainerStatus struct {
	Name   string
	State  string // StateRunning, StateExited or StateMissing
	Status string // human readable, e.g. "Up 2 hours"
}

// Runtime is the container runtime surface esxm drives. All operations are
// idempotent where the orchestration relies on re-runs: Ensure* treats
// already-present as success, StartContainer restarts an existing stopped
// container instead of failing on a name conflict.
type Runtime interface {
	EnsureNetwork(ctx context.Context, name string) error

	EnsureVolume(ctx context.Context, name string) error
	VolumeExists(ctx context.Context, name string) (bool, error)

	StartContainer(ctx context.Context, spec ContainerSpec) error
	StopContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error
	ContainerState(ctx context.Context, name string) (*ContainerStatus, error)
	ContainerLogs(ctx context.Context, name string) (string, error)
	Exec(ctx context.Context, name string, cmd []string) (string, error)

	// CopyFromVolume copies the full contents of a named volume into destDir.
	CopyFromVolume(ctx context.Context, volume, destDir string) error
	// CopyToVolume copies the full contents of srcDir into a named volume,
	// overwriting existing entries.
	CopyToVolume(ctx context.Context, volume, srcDir string) error

	Close() error
}
