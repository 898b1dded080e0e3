package runtime

import "context"

// ContainerSpec is what the orchestrator needs to materialize a service
// container. It is derived from a domain.ServiceDefinition.
type ContainerSpec struct {
	Name     string            // service name, used to derive the container name
	Image    string            // container image reference
	Port     int               // container port the service listens on
	Env      map[string]string // extra environment variables
	CPUs     float64           // CPU limit in fractional cores, 0 = unlimited
	MemoryMB int64             // memory limit in MiB, 0 = unlimited
}

// ContainerState is the narrow view of a container the orchestrator
// cares about.
type ContainerState struct {
	Running bool
	Paused  bool
}

// ContainerRuntime abstracts the container engine. The core depends only
// on this contract, so the engine can be swapped (Docker, Podman, a fake
// in tests) without touching the lifecycle logic.
type ContainerRuntime interface {
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Unpause(ctx context.Context, id string) error
	Inspect(ctx context.Context, id string) (ContainerState, error)

	// Ping checks connectivity to the engine, for health reporting.
	Ping(ctx context.Context) error
}
