package connector

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"
	"github.com/pkg/errors"
)

// helperImage is the throwaway image used to reach into named volumes. A
// container is created (never started) with the volume mounted so the copy
// API can stream a tar in or out.
const helperImage = "busybox:stable"

// volumeMountPath is where the helper container mounts the target volume.
const volumeMountPath = "/bundle"

// DockerRuntime drives a local docker daemon through its SDK.
type DockerRuntime struct {
	cli *client.Client
}

var _ Runtime = (*DockerRuntime)(nil)

// NewDockerRuntime connects to the daemon named by the environment
// (DOCKER_HOST etc.), negotiating the API version.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}
	return &DockerRuntime{cli: cli}, nil
}

func (d *DockerRuntime) Close() error { return d.cli.Close() }

func (d *DockerRuntime) EnsureNetwork(ctx context.Context, name string) error {
	f := filters.NewArgs()
	f.Add("name", name)
	nets, err := d.cli.NetworkList(ctx, network.ListOptions{Filters: f})
	if err != nil {
		return errors.Wrapf(err, "failed to list networks matching %q", name)
	}
	for _, n := range nets {
		if n.Name == name {
			return nil
		}
	}
	if _, err := d.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"}); err != nil {
		return errors.Wrapf(err, "failed to create network %q", name)
	}
	return nil
}

func (d *DockerRuntime) EnsureVolume(ctx context.Context, name string) error {
	exists, err := d.VolumeExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return errors.Wrapf(err, "failed to create volume %q", name)
	}
	return nil
}

func (d *DockerRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	f := filters.NewArgs()
	f.Add("name", name)
	resp, err := d.cli.VolumeList(ctx, volume.ListOptions{Filters: f})
	if err != nil {
		return false, errors.Wrapf(err, "failed to list volumes matching %q", name)
	}
	for _, v := range resp.Volumes {
		if v.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// StartContainer creates and starts the declared container. A container
// that already exists is started in place (no-op when already running), so
// re-running a bring-up phase is safe.
func (d *DockerRuntime) StartContainer(ctx context.Context, spec ContainerSpec) error {
	state, err := d.ContainerState(ctx, spec.Name)
	if err != nil {
		return err
	}
	if state.State == StateRunning {
		return nil
	}
	if state.State == StateMissing {
		if err := d.ensureImage(ctx, spec.Image); err != nil {
			return err
		}
		if err := d.createContainer(ctx, spec); err != nil {
			return err
		}
	}
	if err := d.cli.ContainerStart(ctx, spec.Name, container.StartOptions{}); err != nil {
		return errors.Wrapf(err, "failed to start container %q", spec.Name)
	}
	return nil
}

func (d *DockerRuntime) createContainer(ctx context.Context, spec ContainerSpec) error {
	portBindings := nat.PortMap{}
	exposedPorts := nat.PortSet{}
	for hostPort, containerPort := range spec.Ports {
		proto, portNum := "tcp", containerPort
		if strings.Contains(containerPort, "/") {
			parts := strings.SplitN(containerPort, "/", 2)
			portNum, proto = parts[0], parts[1]
		}
		port, err := nat.NewPort(proto, portNum)
		if err != nil {
			return errors.Wrapf(err, "invalid port %q for container %q", containerPort, spec.Name)
		}
		exposedPorts[port] = struct{}{}
		portBindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: hostPort}}
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Cmd:          spec.Cmd,
		ExposedPorts: exposedPorts,
	}
	hostCfg := &container.HostConfig{
		PortBindings:  portBindings,
		Binds:         spec.Binds,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	if spec.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(spec.Network)
	}
	if spec.MemLimit > 0 {
		hostCfg.Resources.Memory = spec.MemLimit
	}
	if spec.MemlockUnlimited {
		hostCfg.Resources.Ulimits = []*units.Ulimit{{Name: "memlock", Soft: -1, Hard: -1}}
	}

	if _, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name); err != nil {
		return errors.Wrapf(err, "failed to create container %q", spec.Name)
	}
	return nil
}

func (d *DockerRuntime) ensureImage(ctx context.Context, ref string) error {
	f := filters.NewArgs()
	f.Add("reference", ref)
	images, err := d.cli.ImageList(ctx, image.ListOptions{Filters: f})
	if err != nil {
		return errors.Wrapf(err, "failed to check for image %q", ref)
	}
	if len(images) > 0 {
		return nil
	}
	out, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull image %q", ref)
	}
	defer out.Close()
	// Drain the progress stream; the pull only completes once it is read.
	_, err = io.Copy(io.Discard, out)
	return errors.Wrapf(err, "failed to read pull progress for image %q", ref)
}

func (d *DockerRuntime) StopContainer(ctx context.Context, name string) error {
	state, err := d.ContainerState(ctx, name)
	if err != nil {
		return err
	}
	if state.State != StateRunning {
		return nil
	}
	if err := d.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return errors.Wrapf(err, "failed to stop container %q", name)
	}
	return nil
}

func (d *DockerRuntime) RemoveContainer(ctx context.Context, name string) error {
	state, err := d.ContainerState(ctx, name)
	if err != nil {
		return err
	}
	if state.State == StateMissing {
		return nil
	}
	if err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return errors.Wrapf(err, "failed to remove container %q", name)
	}
	return nil
}

func (d *DockerRuntime) ContainerState(ctx context.Context, name string) (*ContainerStatus, error) {
	inspect, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &ContainerStatus{Name: name, State: StateMissing}, nil
		}
		return nil, errors.Wrapf(err, "failed to inspect container %q", name)
	}
	st := &ContainerStatus{Name: name, State: StateExited}
	if inspect.State != nil {
		st.Status = inspect.State.Status
		if inspect.State.Running {
			st.State = StateRunning
		}
	}
	return st, nil
}

func (d *DockerRuntime) ContainerLogs(ctx context.Context, name string) (string, error) {
	out, err := d.cli.ContainerLogs(ctx, name, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: "200"})
	if err != nil {
		return "", errors.Wrapf(err, "failed to get logs for container %q", name)
	}
	defer out.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, out); err != nil {
		return "", errors.Wrapf(err, "failed to read logs for container %q", name)
	}
	if stderr.Len() > 0 {
		stdout.WriteString(stderr.String())
	}
	return stdout.String(), nil
}

func (d *DockerRuntime) Exec(ctx context.Context, name string, cmd []string) (string, error) {
	execResp, err := d.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to create exec in container %q", name)
	}
	attach, err := d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return "", errors.Wrapf(err, "failed to attach exec in container %q", name)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return "", errors.Wrapf(err, "failed to read exec output from container %q", name)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to inspect exec in container %q", name)
	}
	if inspect.ExitCode != 0 {
		return stdout.String(), errors.Errorf("command %v in container %q exited %d: %s",
			cmd, name, inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// CopyFromVolume streams the volume contents out through a created (never
// started) helper container with the volume mounted.
func (d *DockerRuntime) CopyFromVolume(ctx context.Context, volumeName, destDir string) error {
	id, cleanup, err := d.helperContainer(ctx, volumeName)
	if err != nil {
		return err
	}
	defer cleanup()

	rc, _, err := d.cli.CopyFromContainer(ctx, id, volumeMountPath)
	if err != nil {
		return errors.Wrapf(err, "failed to copy out of volume %q", volumeName)
	}
	defer rc.Close()
	return untarInto(rc, destDir)
}

// CopyToVolume streams srcDir into the volume, overwriting existing entries.
func (d *DockerRuntime) CopyToVolume(ctx context.Context, volumeName, srcDir string) error {
	id, cleanup, err := d.helperContainer(ctx, volumeName)
	if err != nil {
		return err
	}
	defer cleanup()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(tarDirectory(srcDir, strings.TrimPrefix(volumeMountPath, "/"), pw))
	}()
	err = d.cli.CopyToContainer(ctx, id, "/", pr, container.CopyToContainerOptions{})
	return errors.Wrapf(err, "failed to copy into volume %q", volumeName)
}

func (d *DockerRuntime) helperContainer(ctx context.Context, volumeName string) (string, func(), error) {
	if err := d.ensureImage(ctx, helperImage); err != nil {
		return "", nil, err
	}
	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{Image: helperImage, Cmd: []string{"true"}},
		&container.HostConfig{Binds: []string{volumeName + ":" + volumeMountPath}},
		nil, nil, "")
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to create helper container for volume %q", volumeName)
	}
	cleanup := func() {
		_ = d.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}
	return resp.ID, cleanup, nil
}

// untarInto extracts a docker copy stream into destDir, stripping the
// leading path component docker prefixes with.
func untarInto(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read copy stream")
		}
		name := stripFirstComponent(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, filepath.Clean("/"+name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create parent of %s", target)
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", target)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return errors.Wrapf(err, "failed to write %s", target)
			}
			f.Close()
		}
	}
}

// tarDirectory writes srcDir's contents as a tar stream rooted at prefix.
func tarDirectory(srcDir, prefix string, w io.Writer) error {
	tw := tar.NewWriter(w)
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(prefix, rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		tw.Close()
		return errors.Wrapf(err, "failed to tar %s", srcDir)
	}
	return tw.Close()
}

func stripFirstComponent(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}
