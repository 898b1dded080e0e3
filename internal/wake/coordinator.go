package wake

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/controller"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
)

// DefaultTimeout is how long a caller waits for a wake before giving up.
const DefaultTimeout = 5 * time.Second

// Coordinator is the synchronous entry point for request-driven
// wake-on-demand. Concurrent wake requests for the same service coalesce
// into a single underlying controller.Wake; every waiter receives the
// same result.
type Coordinator struct {
	controller *controller.ContainerController
	store      *statestore.StatusStore
	logger     logger.Logger
	timeout    time.Duration

	group singleflight.Group
}

// New creates a coordinator. timeout <= 0 selects DefaultTimeout.
func New(ctrl *controller.ContainerController, store *statestore.StatusStore, log logger.Logger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		controller: ctrl,
		store:      store,
		logger:     log,
		timeout:    timeout,
	}
}

// EnsureRunning guarantees the service is RUNNING and acquires a request
// slot on it: ActiveRequests is incremented and LastAccessed refreshed.
// The caller must pair it with Release once the request finishes.
//
// If the service is not running, the caller blocks until a coalesced wake
// completes or the timeout elapses (WakeTimeoutError).
func (c *Coordinator) EnsureRunning(ctx context.Context, name string) (domain.ServiceStatus, error) {
	if st, ok := c.acquireIfRunning(name); ok {
		return st, nil
	}

	st, err := c.Wake(ctx, name)
	if err != nil {
		return st, err
	}

	st, ok := c.acquireIfRunning(name)
	if !ok {
		// The service changed state between the wake completing and the
		// slot acquisition (ex: an administrative stop raced in).
		return st, &domain.InvalidStateError{Service: name, Op: "dispatch", State: st.State}
	}
	return st, nil
}

// Wake triggers (or joins) a wake for the service and waits for the
// result, up to the configured timeout. The underlying wake keeps running
// after a timeout; only the waiting stops.
func (c *Coordinator) Wake(ctx context.Context, name string) (domain.ServiceStatus, error) {
	if _, ok := c.store.Snapshot(name); !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}

	ch := c.group.DoChan(name, func() (interface{}, error) {
		// Detached from any single caller: an in-progress container
		// start is allowed to complete rather than being killed.
		return c.controller.Wake(context.Background(), name)
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		st, _ := res.Val.(domain.ServiceStatus)
		if res.Shared {
			c.logger.Debug("wake result shared with coalesced callers",
				logger.String("service", name))
		}
		return st, res.Err
	case <-timer.C:
		c.logger.Warn("wake timed out, container start continues in background",
			logger.String("service", name),
			logger.Duration("timeout", c.timeout))
		return domain.ServiceStatus{}, &domain.WakeTimeoutError{Service: name, Timeout: c.timeout}
	case <-ctx.Done():
		return domain.ServiceStatus{}, ctx.Err()
	}
}

// Release gives back a request slot acquired by EnsureRunning and
// refreshes the idle clock.
func (c *Coordinator) Release(name string) {
	c.store.Update(name, func(s *domain.ServiceStatus) {
		if s.ActiveRequests > 0 {
			s.ActiveRequests--
		}
		s.LastAccessed = time.Now()
	})
}

// acquireIfRunning atomically takes a request slot when the service is
// already RUNNING.
func (c *Coordinator) acquireIfRunning(name string) (domain.ServiceStatus, bool) {
	var running bool
	st, ok := c.store.Update(name, func(s *domain.ServiceStatus) {
		if s.State == domain.StateRunning {
			s.ActiveRequests++
			s.LastAccessed = time.Now()
			running = true
		}
	})
	if !ok {
		return domain.ServiceStatus{}, false
	}
	return st, running
}
