package domain

import "time"

// State is the lifecycle state of a managed service.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateWaking   State = "waking"
	StateStopping State = "stopping"
	StateError    State = "error"
)

// CanSleep reports whether a sleep operation is legal from s.
func (s State) CanSleep() bool {
	return s == StateRunning
}

// CanWake reports whether a wake operation is legal from s.
// ERROR is always wakeable: the retry path is how a degraded service
// recovers.
func (s State) CanWake() bool {
	switch s {
	case StateSleeping, StateStopped, StateError:
		return true
	}
	return false
}

// CanStart reports whether an administrative start is legal from s.
func (s State) CanStart() bool {
	switch s {
	case StateStopped, StateError:
		return true
	}
	return false
}

// CanStop reports whether an administrative stop is legal from s.
// Stopping a SLEEPING service is allowed; the controller resumes it
// first so the runtime releases resources cleanly.
func (s State) CanStop() bool {
	switch s {
	case StateRunning, StateSleeping, StateError:
		return true
	}
	return false
}

// ServiceStatus is the mutable runtime state of a service, 1:1 with its
// ServiceDefinition and keyed by name. It is owned by the StatusStore;
// only the ContainerController transitions State.
type ServiceStatus struct {
	Name  string `json:"name"`
	State State  `json:"state"`

	// ContainerID is set while a container exists for the service.
	ContainerID string `json:"container_id,omitempty"`

	// LastAccessed is updated on every dispatched request and drives
	// idle detection.
	LastAccessed time.Time `json:"last_accessed"`

	// LastWake is the time the service last entered RUNNING; used to
	// honor the policy's minimum awake time between sleeps.
	LastWake time.Time `json:"last_wake"`

	// SleepStart is set while the service is SLEEPING.
	SleepStart *time.Time `json:"sleep_start,omitempty"`

	// WakeCount counts successful wakes. Monotonic.
	WakeCount int64 `json:"wake_count"`

	// TotalSleep is the accumulated time spent SLEEPING. Monotonic.
	TotalSleep time.Duration `json:"total_sleep"`

	// ErrorMessage carries the last operation failure; cleared by the
	// next successful operation.
	ErrorMessage string `json:"error_message,omitempty"`

	// ActiveRequests counts requests currently dispatched to the
	// service. A busy service is never slept.
	ActiveRequests int `json:"active_requests"`
}
