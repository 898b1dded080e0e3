package domain

import (
	"fmt"
	"time"
)

// PolicyValidationError marks a service definition rejected at load time.
// It is contained per service and never fatal to the registry.
type PolicyValidationError struct {
	Service string
	Reason  string
}

func (e *PolicyValidationError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("invalid service definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid service definition %q: %s", e.Service, e.Reason)
}

// ServiceNotFoundError marks an operation referencing an unknown name.
type ServiceNotFoundError struct {
	Service string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %q not found", e.Service)
}

// InvalidStateError marks an operation that is not legal from the
// service's current state (ex: sleep on a STOPPED service).
type InvalidStateError struct {
	Service string
	Op      string
	State   State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s service %q in state %s", e.Op, e.Service, e.State)
}

// RuntimeOperationError wraps a failed container runtime call.
type RuntimeOperationError struct {
	Service string
	Op      string
	Err     error
}

func (e *RuntimeOperationError) Error() string {
	return fmt.Sprintf("runtime %s failed for service %q: %v", e.Op, e.Service, e.Err)
}

func (e *RuntimeOperationError) Unwrap() error { return e.Err }

// WakeTimeoutError marks a wake that did not complete within its deadline.
// The underlying wake keeps running; the caller just stopped waiting.
type WakeTimeoutError struct {
	Service string
	Timeout time.Duration
}

func (e *WakeTimeoutError) Error() string {
	return fmt.Sprintf("wake of service %q did not complete within %s", e.Service, e.Timeout)
}
