package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
)

// removeTimeout bounds the forced cleanup of a container after Run.
const removeTimeout = 10 * time.Second

// containerAPI is the subset of the Docker client used by ContainerRunner.
type containerAPI interface {
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options types.ContainerLogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	Close() error
}

// ContainerRunner runs the command inside a throwaway Docker container. The
// command's program must exist inside the image. USB debug probes are made
// visible to the container through Devices.
type ContainerRunner struct {
	Image string
	// Devices are host device paths, optionally "host:container[:perms]".
	Devices     []string
	MemoryLimit string
	CPULimit    int
	// Network is the container network mode; empty means "none".
	Network string
	Logger  zerolog.Logger

	connect func() (containerAPI, error)
}

// NewContainerRunner creates a runner that uses the Docker daemon from the environment.
func NewContainerRunner(image string, logger zerolog.Logger) *ContainerRunner {
	return &ContainerRunner{Image: image, Logger: logger}
}

// CheckDockerAvailability verifies Docker is installed and accessible.
func CheckDockerAvailability() error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("Docker not available: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(context.Background()); err != nil {
		return fmt.Errorf("Docker not available: %w", err)
	}
	return nil
}

// Run creates a container for cmd, waits for it to exit and returns its
// standard output. When timeout elapses first the container is killed and
// removed and a timeout error is returned; the container is removed on
// every other path too.
func (r *ContainerRunner) Run(cmd Command, timeout time.Duration) (string, error) {
	if cmd.Empty() {
		return "", perrors.New(perrors.KindLaunch, "empty command")
	}
	if r.Image == "" {
		return "", perrors.New(perrors.KindLaunch, "no container image configured")
	}
	timeout = effectiveTimeout(timeout)

	hostConfig, err := r.hostConfig()
	if err != nil {
		return "", perrors.Wrap(perrors.KindLaunch, "invalid container settings", err)
	}

	cli, err := r.client()
	if err != nil {
		return "", perrors.Wrap(perrors.KindLaunch, "docker not available", err)
	}
	defer cli.Close()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	timedOut := func() error {
		return perrors.Newf(perrors.KindTimeout, "%s did not finish within %s", cmd, timeout)
	}
	classify := func(kind perrors.Kind, msg string, err error) error {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timedOut()
		}
		return perrors.Wrap(kind, msg, err)
	}

	if err := r.ensureImage(ctx, cli); err != nil {
		return "", classify(perrors.KindLaunch, "pull image "+r.Image, err)
	}

	containerConfig := &container.Config{
		Image:        r.Image,
		Cmd:          strslice.StrSlice(cmd.Argv()),
		AttachStdout: true,
		AttachStderr: true,
	}
	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", classify(perrors.KindLaunch, "error while launching command: "+cmd.String(), err)
	}
	defer r.remove(cli, resp.ID)

	if err := cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", classify(perrors.KindLaunch, "error while launching command: "+cmd.String(), err)
	}

	var exitCode int64
	statusCh, errCh := cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", classify(perrors.KindRead, "wait for container", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	case <-ctx.Done():
		return "", timedOut()
	}

	logs, err := cli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", classify(perrors.KindRead, "error reading stdout of: "+cmd.String(), err)
	}
	defer logs.Close()

	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: stderrTail}
	if _, err := stdcopy.StdCopy(&stdout, stderr, logs); err != nil {
		return "", classify(perrors.KindRead, "error reading stdout of: "+cmd.String(), err)
	}
	text, _ := drainLines(&stdout)

	ev := r.Logger.Debug().
		Strs("argv", cmd.Argv()).
		Str("image", r.Image).
		Str("container", shortID(resp.ID)).
		Dur("elapsed", time.Since(start)).
		Int64("exit_code", exitCode)
	if s := stderr.String(); s != "" {
		ev = ev.Str("stderr", s)
	}
	ev.Msg("container finished")

	return text, nil
}

func (r *ContainerRunner) client() (containerAPI, error) {
	if r.connect != nil {
		return r.connect()
	}
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func (r *ContainerRunner) hostConfig() (*container.HostConfig, error) {
	devices := make([]container.DeviceMapping, 0, len(r.Devices))
	for _, spec := range r.Devices {
		d, err := parseDevice(spec)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	var memory int64
	if r.MemoryLimit != "" {
		m, err := units.RAMInBytes(r.MemoryLimit)
		if err != nil {
			return nil, fmt.Errorf("memory limit %q: %w", r.MemoryLimit, err)
		}
		memory = m
	}

	mode := r.Network
	if mode == "" {
		mode = "none"
	}

	return &container.HostConfig{
		NetworkMode: container.NetworkMode(mode),
		Resources: container.Resources{
			Memory:   memory,
			NanoCPUs: int64(r.CPULimit) * 1000000000,
			Devices:  devices,
		},
		CapDrop:     strslice.StrSlice{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
	}, nil
}

// ensureImage pulls the image unless it is already present locally.
func (r *ContainerRunner) ensureImage(ctx context.Context, cli containerAPI) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, r.Image); err == nil {
		return nil
	}

	r.Logger.Info().Str("image", r.Image).Msg("pulling image")
	reader, err := cli.ImagePull(ctx, r.Image, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// remove force-removes the container with a fresh context, since the
// invocation context may already have expired.
func (r *ContainerRunner) remove(cli containerAPI, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if err := cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil {
		r.Logger.Warn().Err(err).Str("container", shortID(id)).Msg("failed to remove container")
	}
}

// parseDevice accepts "/dev/x", "/dev/x:/dev/y" or "/dev/x:/dev/y:rw".
func parseDevice(spec string) (container.DeviceMapping, error) {
	parts := strings.Split(spec, ":")
	d := container.DeviceMapping{CgroupPermissions: "rwm"}
	switch len(parts) {
	case 3:
		d.CgroupPermissions = parts[2]
		fallthrough
	case 2:
		d.PathInContainer = parts[1]
		fallthrough
	case 1:
		d.PathOnHost = parts[0]
	default:
		return d, fmt.Errorf("invalid device %q", spec)
	}
	if d.PathOnHost == "" {
		return d, fmt.Errorf("invalid device %q: empty host path", spec)
	}
	if d.PathInContainer == "" {
		d.PathInContainer = d.PathOnHost
	}
	if d.CgroupPermissions == "" || strings.Trim(d.CgroupPermissions, "rwm") != "" {
		return d, fmt.Errorf("invalid device %q: bad permissions %q", spec, d.CgroupPermissions)
	}
	return d, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
