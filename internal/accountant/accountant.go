package accountant

import (
	"errors"
	"fmt"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
)

// ErrMemoryCeiling marks a wake/start refused because the configured
// memory ceiling would be exceeded.
var ErrMemoryCeiling = errors.New("memory ceiling exceeded")

// Accountant aggregates memory reservations across the fleet for health
// and status reporting. A RUNNING service reserves its full memory limit;
// a SLEEPING one only its policy's reservation.
//
// By default it is reporting-only. With a non-zero ceiling it also acts
// as a hard admission gate consulted before wake/start.
type Accountant struct {
	registry  *registry.ServiceRegistry
	store     *statestore.StatusStore
	ceilingMB int64
}

// Summary is the aggregate resource view exposed on /health.
type Summary struct {
	ServicesRunning       int   `json:"services_running"`
	ServicesSleeping      int   `json:"services_sleeping"`
	ServicesTotal         int   `json:"services_total"`
	TotalMemoryReservedMB int64 `json:"total_memory_reserved_mb"`
}

// New creates an accountant. ceilingMB 0 disables admission control.
func New(reg *registry.ServiceRegistry, store *statestore.StatusStore, ceilingMB int64) *Accountant {
	return &Accountant{registry: reg, store: store, ceilingMB: ceilingMB}
}

// Summary scans the fleet and returns current totals.
func (a *Accountant) Summary() Summary {
	sum, _ := a.scan()
	return sum
}

// CheckAdmission reports whether def may move to RUNNING under the
// configured ceiling. Reporting-only accountants always admit.
func (a *Accountant) CheckAdmission(def *domain.ServiceDefinition) error {
	if a.ceilingMB <= 0 {
		return nil
	}

	sum, contributions := a.scan()

	// The service's current reservation (ex: its sleeping reservation)
	// is replaced by its full limit, not added on top.
	projected := sum.TotalMemoryReservedMB - contributions[def.Name] + def.Resources.MemoryMB
	if projected > a.ceilingMB {
		return fmt.Errorf("%w: %d MB reserved + %d MB for %q exceeds %d MB",
			ErrMemoryCeiling, sum.TotalMemoryReservedMB-contributions[def.Name],
			def.Resources.MemoryMB, def.Name, a.ceilingMB)
	}
	return nil
}

// scan computes the summary plus each service's current contribution.
func (a *Accountant) scan() (Summary, map[string]int64) {
	defs := a.registry.List()
	sum := Summary{ServicesTotal: len(defs)}
	contributions := make(map[string]int64, len(defs))

	for _, def := range defs {
		st, ok := a.store.Snapshot(def.Name)
		if !ok {
			continue
		}
		var reserved int64
		switch st.State {
		case domain.StateRunning:
			sum.ServicesRunning++
			reserved = def.Resources.MemoryMB
		case domain.StateWaking, domain.StateStarting:
			// In-transition services already hold their full footprint.
			reserved = def.Resources.MemoryMB
		case domain.StateSleeping:
			sum.ServicesSleeping++
			reserved = def.SleepPolicy.MemoryReservationMB
		}
		contributions[def.Name] = reserved
		sum.TotalMemoryReservedMB += reserved
	}

	return sum, contributions
}
