package servicefile

import (
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
)

// Mapper converts file entries into domain service definitions.
type Mapper struct{}

// NewMapper creates a new mapper
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map converts one entry, applying defaults. Parse problems surface as
// *domain.PolicyValidationError so the caller can skip the entry and
// keep loading the rest of the file.
func (m *Mapper) Map(entry ServiceEntry) (*domain.ServiceDefinition, error) {
	def := &domain.ServiceDefinition{
		Name:  entry.Name,
		Image: entry.Image,
		Port:  entry.Port,
		Env:   entry.Env,
		Resources: domain.ResourceLimits{
			CPUs:     entry.Resources.CPUs,
			MemoryMB: entry.Resources.MemoryMB,
		},
		SleepPolicy: domain.SleepPolicy{
			Priority: domain.PriorityNormal,
		},
	}

	if entry.SleepPolicy != nil {
		p := entry.SleepPolicy

		idle, err := parseDuration(entry.Name, "idle_timeout", p.IdleTimeout)
		if err != nil {
			return nil, err
		}
		minSleep, err := parseDuration(entry.Name, "min_sleep_time", p.MinSleepTime)
		if err != nil {
			return nil, err
		}

		def.SleepPolicy = domain.SleepPolicy{
			Enabled:             p.Enabled,
			IdleTimeout:         idle,
			MinSleepTime:        minSleep,
			MemoryReservationMB: p.MemoryReservationMB,
			Priority:            domain.PriorityNormal,
		}
		if p.Priority != "" {
			def.SleepPolicy.Priority = domain.Priority(p.Priority)
		}
	}

	return def, nil
}

func parseDuration(service, field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &domain.PolicyValidationError{
			Service: service,
			Reason:  field + " is not a valid duration: " + value,
		}
	}
	return d, nil
}
