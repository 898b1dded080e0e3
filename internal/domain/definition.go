package domain

import "time"

// Priority orders services for auto-sleep dispatch. Low-priority services
// are reclaimed first when several become idle in the same scan.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the three known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Rank returns the dispatch order of the tier. Lower rank sleeps first.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityNormal:
		return 1
	case PriorityHigh:
		return 2
	}
	return 1
}

// ResourceLimits caps what the container may consume.
type ResourceLimits struct {
	// CPUs is the CPU quota in fractional cores (ex: 1.5).
	// 0 means unlimited.
	CPUs float64 `json:"cpus"`

	// MemoryMB is the memory limit in mebibytes. 0 means unlimited.
	MemoryMB int64 `json:"memory_mb"`
}

// SleepPolicy governs whether and how aggressively a service is auto-slept.
type SleepPolicy struct {
	// Enabled turns auto-sleep on for this service. A disabled policy
	// also rejects manual sleep requests.
	Enabled bool `json:"enabled"`

	// IdleTimeout is the inactivity duration after which a running
	// service becomes eligible for auto-sleep.
	IdleTimeout time.Duration `json:"idle_timeout"`

	// MinSleepTime is the minimum awake duration between sleeps, so a
	// freshly woken service is not paused again immediately.
	// Invariant: IdleTimeout > MinSleepTime >= 0.
	MinSleepTime time.Duration `json:"min_sleep_time"`

	// MemoryReservationMB is the memory kept reserved while sleeping.
	// Invariant: MemoryReservationMB <= ResourceLimits.MemoryMB.
	MemoryReservationMB int64 `json:"memory_reservation_mb"`

	// Priority is the reclamation tier (low sleeps first).
	Priority Priority `json:"priority"`
}

// ServiceDefinition is the immutable description of a managed worker
// service. It is built once at startup from the service file and shared
// read-only across all components.
type ServiceDefinition struct {
	// Name is the unique key of the service.
	Name string `json:"name"`

	// Image is the container image reference.
	Image string `json:"image"`

	// Port is the container port the service listens on.
	Port int `json:"port"`

	// Env holds extra environment variables passed to the container.
	Env map[string]string `json:"env,omitempty"`

	Resources   ResourceLimits `json:"resources"`
	SleepPolicy SleepPolicy    `json:"sleep_policy"`
}

// Validate checks the definition invariants. It returns a
// *PolicyValidationError describing the first violation found.
func (d *ServiceDefinition) Validate() error {
	switch {
	case d.Name == "":
		return &PolicyValidationError{Service: d.Name, Reason: "name is required"}
	case d.Image == "":
		return &PolicyValidationError{Service: d.Name, Reason: "image is required"}
	case d.Port <= 0 || d.Port > 65535:
		return &PolicyValidationError{Service: d.Name, Reason: "port must be in 1..65535"}
	case d.Resources.CPUs < 0:
		return &PolicyValidationError{Service: d.Name, Reason: "cpus must be >= 0"}
	case d.Resources.MemoryMB < 0:
		return &PolicyValidationError{Service: d.Name, Reason: "memory_mb must be >= 0"}
	}

	p := d.SleepPolicy
	if !p.Priority.Valid() {
		return &PolicyValidationError{Service: d.Name, Reason: "priority must be low, normal or high"}
	}
	if p.Enabled {
		if p.MinSleepTime < 0 {
			return &PolicyValidationError{Service: d.Name, Reason: "min_sleep_time must be >= 0"}
		}
		if p.IdleTimeout <= p.MinSleepTime {
			return &PolicyValidationError{Service: d.Name, Reason: "idle_timeout must be greater than min_sleep_time"}
		}
	}
	if p.MemoryReservationMB < 0 {
		return &PolicyValidationError{Service: d.Name, Reason: "memory_reservation_mb must be >= 0"}
	}
	if d.Resources.MemoryMB > 0 && p.MemoryReservationMB > d.Resources.MemoryMB {
		return &PolicyValidationError{Service: d.Name, Reason: "memory_reservation_mb exceeds memory limit"}
	}

	return nil
}
