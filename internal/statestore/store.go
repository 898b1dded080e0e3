package statestore

import (
	"sync"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
)

// entry pairs a service's status with its two locks.
//
// opMu serializes lifecycle operations (sleep/wake/start/stop) on one
// service: it is held for the whole operation, runtime calls included.
// mu guards the status data itself and is only held for short reads and
// writes, so snapshots never block behind a slow runtime call and
// intermediate states (WAKING, STOPPING, ...) stay observable.
type entry struct {
	opMu   sync.Mutex
	mu     sync.Mutex
	status domain.ServiceStatus
}

// StatusStore owns the service name -> ServiceStatus map. It is the only
// shared mutable structure in the orchestrator; state transitions go
// through the ContainerController, which holds the entry's operation
// lock while it works.
type StatusStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New creates an empty store.
func New() *StatusStore {
	return &StatusStore{entries: make(map[string]*entry)}
}

// Register creates the status entry for a service in its initial STOPPED
// state. Registering an existing name is a no-op.
func (s *StatusStore) Register(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return
	}
	s.entries[name] = &entry{status: domain.ServiceStatus{
		Name:         name,
		State:        domain.StateStopped,
		LastAccessed: time.Now(),
	}}
	s.order = append(s.order, name)
}

func (s *StatusStore) entry(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	return e, ok
}

// AcquireOp takes the per-service operation lock and returns its release
// function. All lifecycle operations on one service are strictly
// serialized through this lock; operations on different services proceed
// in parallel.
func (s *StatusStore) AcquireOp(name string) (release func(), ok bool) {
	e, ok := s.entry(name)
	if !ok {
		return nil, false
	}
	e.opMu.Lock()
	return e.opMu.Unlock, true
}

// Snapshot returns a copy of the service's current status.
func (s *StatusStore) Snapshot(name string) (domain.ServiceStatus, bool) {
	e, ok := s.entry(name)
	if !ok {
		return domain.ServiceStatus{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return copyStatus(e.status), true
}

// Update applies fn to the service's status under the data lock and
// returns the resulting snapshot.
func (s *StatusStore) Update(name string, fn func(*domain.ServiceStatus)) (domain.ServiceStatus, bool) {
	e, ok := s.entry(name)
	if !ok {
		return domain.ServiceStatus{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.status)
	return copyStatus(e.status), true
}

// List returns snapshots of all services in registration order.
func (s *StatusStore) List() []domain.ServiceStatus {
	s.mu.RLock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	s.mu.RUnlock()

	out := make([]domain.ServiceStatus, 0, len(order))
	for _, name := range order {
		if st, ok := s.Snapshot(name); ok {
			out = append(out, st)
		}
	}
	return out
}

// Names returns all registered service names in registration order.
func (s *StatusStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Count returns the number of registered services.
func (s *StatusStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// copyStatus deep-copies a status so callers never share the stored
// SleepStart pointer.
func copyStatus(st domain.ServiceStatus) domain.ServiceStatus {
	out := st
	if st.SleepStart != nil {
		t := *st.SleepStart
		out.SleepStart = &t
	}
	return out
}
