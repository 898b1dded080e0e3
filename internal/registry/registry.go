package registry

import (
	"sync"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
)

// ServiceRegistry holds the validated, immutable service definitions.
// Definitions are loaded once at startup; iteration order is insertion
// order so listings and scans are deterministic.
type ServiceRegistry struct {
	mu     sync.RWMutex
	defs   map[string]*domain.ServiceDefinition
	order  []string
	logger logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		defs:   make(map[string]*domain.ServiceDefinition),
		logger: log,
	}
}

// Register validates and stores a definition. A duplicate name or a
// policy invariant violation returns a *domain.PolicyValidationError;
// the caller is expected to skip the definition and keep loading.
func (r *ServiceRegistry) Register(def *domain.ServiceDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return &domain.PolicyValidationError{Service: def.Name, Reason: "duplicate service name"}
	}

	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)

	r.logger.Debug("service definition registered",
		logger.String("service", def.Name),
		logger.String("image", def.Image))
	return nil
}

// Get returns the definition for name or a *domain.ServiceNotFoundError.
func (r *ServiceRegistry) Get(name string) (*domain.ServiceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, &domain.ServiceNotFoundError{Service: name}
	}
	return def, nil
}

// List returns all definitions in insertion order.
func (r *ServiceRegistry) List() []*domain.ServiceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*domain.ServiceDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Count returns the number of registered definitions.
func (r *ServiceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}
