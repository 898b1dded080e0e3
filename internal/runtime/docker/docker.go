package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime"
)

// containerNamePrefix namespaces gateway-owned containers so they are
// easy to find (and hard to collide) on a shared daemon.
const containerNamePrefix = "mcpgw-"

// Runtime implements runtime.ContainerRuntime against a Docker daemon.
type Runtime struct {
	cli    *client.Client
	logger logger.Logger
}

// New connects to the Docker daemon using the standard environment
// (DOCKER_HOST etc.) with API version negotiation.
func New(log logger.Logger) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Runtime{cli: cli, logger: log}, nil
}

// Create pulls the image (best effort) and creates a container with the
// spec's resource limits and port exposed. The container is not started.
func (r *Runtime) Create(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	// Pull so a fresh host works out of the box. A pull failure is not
	// fatal: the image may already be present locally.
	if reader, err := r.cli.ImagePull(ctx, spec.Image, types.ImagePullOptions{}); err != nil {
		r.logger.Warn("image pull failed, using local image if present",
			logger.String("image", spec.Image),
			logger.Error(err))
	} else {
		_, _ = io.Copy(io.Discard, reader)
		_ = reader.Close()
	}

	port, err := nat.NewPort("tcp", fmt.Sprintf("%d", spec.Port))
	if err != nil {
		return "", fmt.Errorf("invalid service port %d: %w", spec.Port, err)
	}

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Env:          env,
			ExposedPorts: nat.PortSet{port: struct{}{}},
		},
		&container.HostConfig{
			// Empty HostPort lets the daemon pick a free one; the
			// gateway proxy discovers it via inspect.
			PortBindings: nat.PortMap{port: []nat.PortBinding{{HostIP: "0.0.0.0"}}},
			Resources: container.Resources{
				Memory:   spec.MemoryMB << 20,
				NanoCPUs: int64(spec.CPUs * 1e9),
			},
		},
		nil, nil, containerNamePrefix+spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container for %s: %w", spec.Name, err)
	}

	return resp.ID, nil
}

// Start starts a created or stopped container.
func (r *Runtime) Start(ctx context.Context, id string) error {
	if err := r.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", shortID(id), err)
	}
	return nil
}

// Stop stops a running container, giving it the daemon's default grace
// period to exit.
func (r *Runtime) Stop(ctx context.Context, id string) error {
	if err := r.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", shortID(id), err)
	}
	return nil
}

// Pause freezes the container's processes while keeping its memory.
func (r *Runtime) Pause(ctx context.Context, id string) error {
	if err := r.cli.ContainerPause(ctx, id); err != nil {
		return fmt.Errorf("failed to pause container %s: %w", shortID(id), err)
	}
	return nil
}

// Unpause resumes a paused container.
func (r *Runtime) Unpause(ctx context.Context, id string) error {
	if err := r.cli.ContainerUnpause(ctx, id); err != nil {
		return fmt.Errorf("failed to unpause container %s: %w", shortID(id), err)
	}
	return nil
}

// Inspect reports whether the container is running and/or paused.
func (r *Runtime) Inspect(ctx context.Context, id string) (runtime.ContainerState, error) {
	info, err := r.cli.ContainerInspect(ctx, id)
	if err != nil {
		return runtime.ContainerState{}, fmt.Errorf("failed to inspect container %s: %w", shortID(id), err)
	}
	if info.State == nil {
		return runtime.ContainerState{}, nil
	}
	return runtime.ContainerState{
		Running: info.State.Running,
		Paused:  info.State.Paused,
	}, nil
}

// Ping checks connectivity to the Docker daemon.
func (r *Runtime) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
