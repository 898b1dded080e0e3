package controller

import (
	"context"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/metrics"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
	redisstore "github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/store/redis"
)

// Options tunes retry and timeout behavior.
type Options struct {
	// WakeRetries is the number of attempts for wake/start operations.
	WakeRetries int
	// WakeBackoff is the initial delay between attempts; it doubles per
	// attempt up to WakeBackoffCap.
	WakeBackoff    time.Duration
	WakeBackoffCap time.Duration
	// CallTimeout bounds each individual container runtime call.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.WakeRetries <= 0 {
		o.WakeRetries = 3
	}
	if o.WakeBackoff <= 0 {
		o.WakeBackoff = 500 * time.Millisecond
	}
	if o.WakeBackoffCap <= 0 {
		o.WakeBackoffCap = 5 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	return o
}

// AdmissionChecker vetoes a transition to RUNNING when configured
// capacity would be exceeded. See accountant.Accountant.
type AdmissionChecker interface {
	CheckAdmission(def *domain.ServiceDefinition) error
}

// ContainerController executes lifecycle operations against the container
// runtime. It is the sole mutator of ServiceStatus.State: every operation
// holds the service's operation lock from the StatusStore for its whole
// duration, so operations on one service are strictly serialized while
// different services proceed in parallel.
type ContainerController struct {
	registry  *registry.ServiceRegistry
	store     *statestore.StatusStore
	runtime   runtime.ContainerRuntime
	snapshots *redisstore.Store // optional, nil-safe
	metrics   *metrics.Recorder
	logger    logger.Logger
	opts      Options
	admission AdmissionChecker // optional, nil-safe
}

// SetAdmission installs an opt-in hard admission gate consulted before
// wake and start.
func (c *ContainerController) SetAdmission(ac AdmissionChecker) {
	c.admission = ac
}

// New creates a controller. snapshots may be nil when persistence is
// disabled.
func New(
	reg *registry.ServiceRegistry,
	store *statestore.StatusStore,
	rt runtime.ContainerRuntime,
	snapshots *redisstore.Store,
	rec *metrics.Recorder,
	log logger.Logger,
	opts Options,
) *ContainerController {
	return &ContainerController{
		registry:  reg,
		store:     store,
		runtime:   rt,
		snapshots: snapshots,
		metrics:   rec,
		logger:    log,
		opts:      opts.withDefaults(),
	}
}

// Sleep pauses a RUNNING service's container, preserving its memory.
//
// It is a no-op returning the current status when the service is already
// SLEEPING, has auto-sleep disabled, or is busy serving requests. The busy
// check runs twice: once up front, and again at commit time after the
// pause, because the wake coordinator hands out request slots under the
// data lock only and one may arrive while the pause is in flight. A
// commit-time hit undoes the pause and leaves the service RUNNING. A pause
// failure is non-destructive: the service stays RUNNING with ErrorMessage
// set and a later sleep attempt is always permitted.
func (c *ContainerController) Sleep(ctx context.Context, name string) (domain.ServiceStatus, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return domain.ServiceStatus{}, err
	}

	release, ok := c.store.AcquireOp(name)
	if !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}
	defer release()

	snap, _ := c.store.Snapshot(name)

	if snap.State == domain.StateSleeping {
		return snap, nil
	}
	if !snap.State.CanSleep() {
		return snap, &domain.InvalidStateError{Service: name, Op: "sleep", State: snap.State}
	}
	if !def.SleepPolicy.Enabled {
		c.logger.Debug("sleep skipped, policy disabled",
			logger.String("service", name))
		return snap, nil
	}
	if snap.ActiveRequests > 0 {
		c.logger.Debug("sleep skipped, service busy",
			logger.String("service", name),
			logger.Int("active_requests", snap.ActiveRequests))
		return snap, nil
	}

	if err := c.call(ctx, func(cctx context.Context) error {
		return c.runtime.Pause(cctx, snap.ContainerID)
	}); err != nil {
		st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
			s.ErrorMessage = err.Error()
		})
		c.metrics.RecordSleepFailure()
		c.logger.Warn("sleep failed, service stays running",
			logger.String("service", name),
			logger.Error(err))
		return st, &domain.RuntimeOperationError{Service: name, Op: "pause", Err: err}
	}

	now := time.Now()
	var busy bool
	st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
		if s.ActiveRequests > 0 {
			busy = true
			return
		}
		s.State = domain.StateSleeping
		s.SleepStart = &now
		s.ErrorMessage = ""
	})
	if busy {
		// A request slot was taken while the container was pausing.
		// Undo the pause so the dispatched request is not stranded on a
		// frozen container.
		if uerr := c.call(ctx, func(cctx context.Context) error {
			return c.runtime.Unpause(cctx, snap.ContainerID)
		}); uerr != nil {
			st, _ = c.store.Update(name, func(s *domain.ServiceStatus) {
				s.State = domain.StateError
				s.ErrorMessage = uerr.Error()
			})
			c.metrics.RecordSleepFailure()
			c.persist(ctx, st)
			c.logger.Error("could not undo pause for busy service, marked error",
				logger.String("service", name),
				logger.Error(uerr))
			return st, &domain.RuntimeOperationError{Service: name, Op: "unpause", Err: uerr}
		}
		c.logger.Debug("sleep aborted, request arrived during pause",
			logger.String("service", name),
			logger.Int("active_requests", st.ActiveRequests))
		return st, nil
	}
	c.metrics.RecordSleep()
	c.persist(ctx, st)
	c.logger.Info("service sleeping",
		logger.String("service", name),
		logger.String("container_id", st.ContainerID))
	return st, nil
}

// Wake brings a SLEEPING, STOPPED or ERROR service back to RUNNING.
// Paused containers are unpaused (fast path); otherwise a container is
// created and started (slow path). Attempts are retried with bounded
// exponential backoff; after exhaustion the service is marked ERROR and a
// RuntimeOperationError is returned. Any later wake is accepted and
// retried fresh.
func (c *ContainerController) Wake(ctx context.Context, name string) (domain.ServiceStatus, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return domain.ServiceStatus{}, err
	}

	release, ok := c.store.AcquireOp(name)
	if !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}
	defer release()

	snap, _ := c.store.Snapshot(name)

	if snap.State == domain.StateRunning {
		return snap, nil
	}
	if !snap.State.CanWake() {
		return snap, &domain.InvalidStateError{Service: name, Op: "wake", State: snap.State}
	}
	if c.admission != nil {
		if err := c.admission.CheckAdmission(def); err != nil {
			return snap, err
		}
	}

	c.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateWaking
	})

	id, err := c.ensureRunningContainer(ctx, def, snap.ContainerID)
	if err != nil {
		st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
			s.State = domain.StateError
			s.ErrorMessage = err.Error()
		})
		c.metrics.RecordWakeFailure()
		c.persist(ctx, st)
		c.logger.Error("wake failed, service marked error",
			logger.String("service", name),
			logger.Error(err))
		return st, &domain.RuntimeOperationError{Service: name, Op: "wake", Err: err}
	}

	now := time.Now()
	st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
		if s.SleepStart != nil {
			s.TotalSleep += now.Sub(*s.SleepStart)
			s.SleepStart = nil
		}
		s.State = domain.StateRunning
		s.ContainerID = id
		s.WakeCount++
		s.LastWake = now
		s.LastAccessed = now
		s.ErrorMessage = ""
	})
	c.metrics.RecordWake()
	c.persist(ctx, st)
	c.logger.Info("service awake",
		logger.String("service", name),
		logger.String("container_id", id),
		logger.Int("wake_count", int(st.WakeCount)))
	return st, nil
}

// Start is the administrative path from STOPPED or ERROR to RUNNING. It
// shares the wake retry policy but does not count as a wake.
func (c *ContainerController) Start(ctx context.Context, name string) (domain.ServiceStatus, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return domain.ServiceStatus{}, err
	}

	release, ok := c.store.AcquireOp(name)
	if !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}
	defer release()

	snap, _ := c.store.Snapshot(name)

	if snap.State == domain.StateRunning {
		return snap, nil
	}
	if !snap.State.CanStart() {
		return snap, &domain.InvalidStateError{Service: name, Op: "start", State: snap.State}
	}
	if c.admission != nil {
		if err := c.admission.CheckAdmission(def); err != nil {
			return snap, err
		}
	}

	c.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateStarting
	})

	id, err := c.ensureRunningContainer(ctx, def, snap.ContainerID)
	if err != nil {
		st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
			s.State = domain.StateError
			s.ErrorMessage = err.Error()
		})
		c.persist(ctx, st)
		c.logger.Error("start failed, service marked error",
			logger.String("service", name),
			logger.Error(err))
		return st, &domain.RuntimeOperationError{Service: name, Op: "start", Err: err}
	}

	now := time.Now()
	st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateRunning
		s.ContainerID = id
		s.LastWake = now
		s.LastAccessed = now
		s.ErrorMessage = ""
	})
	c.persist(ctx, st)
	c.logger.Info("service started",
		logger.String("service", name),
		logger.String("container_id", id))
	return st, nil
}

// Stop takes a service to STOPPED. A SLEEPING service is resumed first so
// the runtime releases its resources cleanly instead of abandoning a
// paused container.
func (c *ContainerController) Stop(ctx context.Context, name string) (domain.ServiceStatus, error) {
	if _, err := c.registry.Get(name); err != nil {
		return domain.ServiceStatus{}, err
	}

	release, ok := c.store.AcquireOp(name)
	if !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}
	defer release()

	snap, _ := c.store.Snapshot(name)

	if snap.State == domain.StateStopped {
		return snap, nil
	}
	if !snap.State.CanStop() {
		return snap, &domain.InvalidStateError{Service: name, Op: "stop", State: snap.State}
	}

	if snap.State == domain.StateSleeping {
		if err := c.call(ctx, func(cctx context.Context) error {
			return c.runtime.Unpause(cctx, snap.ContainerID)
		}); err != nil {
			st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
				s.ErrorMessage = err.Error()
			})
			c.logger.Warn("stop aborted, could not resume sleeping service",
				logger.String("service", name),
				logger.Error(err))
			return st, &domain.RuntimeOperationError{Service: name, Op: "unpause", Err: err}
		}
		now := time.Now()
		c.store.Update(name, func(s *domain.ServiceStatus) {
			if s.SleepStart != nil {
				s.TotalSleep += now.Sub(*s.SleepStart)
				s.SleepStart = nil
			}
			s.State = domain.StateRunning
		})
	}

	c.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateStopping
	})

	if snap.ContainerID != "" {
		if err := c.call(ctx, func(cctx context.Context) error {
			return c.runtime.Stop(cctx, snap.ContainerID)
		}); err != nil {
			st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
				s.State = domain.StateError
				s.ErrorMessage = err.Error()
			})
			c.persist(ctx, st)
			c.logger.Error("stop failed, service marked error",
				logger.String("service", name),
				logger.Error(err))
			return st, &domain.RuntimeOperationError{Service: name, Op: "stop", Err: err}
		}
	}

	st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
		s.State = domain.StateStopped
		s.ContainerID = ""
		s.SleepStart = nil
		s.ErrorMessage = ""
	})
	c.persist(ctx, st)
	c.logger.Info("service stopped",
		logger.String("service", name))
	return st, nil
}

// Reset is the explicit operator action that returns a service's
// bookkeeping to its initial STOPPED state with cleared counters. It does
// not touch the container runtime.
func (c *ContainerController) Reset(ctx context.Context, name string) (domain.ServiceStatus, error) {
	if _, err := c.registry.Get(name); err != nil {
		return domain.ServiceStatus{}, err
	}

	release, ok := c.store.AcquireOp(name)
	if !ok {
		return domain.ServiceStatus{}, &domain.ServiceNotFoundError{Service: name}
	}
	defer release()

	st, _ := c.store.Update(name, func(s *domain.ServiceStatus) {
		*s = domain.ServiceStatus{
			Name:         name,
			State:        domain.StateStopped,
			LastAccessed: time.Now(),
		}
	})
	c.persist(ctx, st)
	c.logger.Info("service reset",
		logger.String("service", name))
	return st, nil
}

// ensureRunningContainer makes a container for def run, reusing
// containerID when one exists. Attempts are retried with exponential
// backoff per Options. It returns the id of the running container.
func (c *ContainerController) ensureRunningContainer(ctx context.Context, def *domain.ServiceDefinition, containerID string) (string, error) {
	var lastErr error
	backoff := c.opts.WakeBackoff

	for attempt := 1; attempt <= c.opts.WakeRetries; attempt++ {
		id, err := c.attemptRun(ctx, def, containerID)
		if err == nil {
			return id, nil
		}
		lastErr = err

		c.logger.Warn("container run attempt failed",
			logger.String("service", def.Name),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", c.opts.WakeRetries),
			logger.Error(err))

		if attempt == c.opts.WakeRetries {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > c.opts.WakeBackoffCap {
			backoff = c.opts.WakeBackoffCap
		}
	}

	return "", lastErr
}

// attemptRun performs one attempt at getting a running container,
// choosing between unpause, start and create+start based on what the
// runtime reports about the existing container, if any.
func (c *ContainerController) attemptRun(ctx context.Context, def *domain.ServiceDefinition, containerID string) (string, error) {
	if containerID != "" {
		var state runtime.ContainerState
		err := c.call(ctx, func(cctx context.Context) (ierr error) {
			state, ierr = c.runtime.Inspect(cctx, containerID)
			return ierr
		})
		switch {
		case err != nil:
			// Container gone or engine confused: fall through and
			// create a fresh one.
		case state.Paused:
			if err := c.call(ctx, func(cctx context.Context) error {
				return c.runtime.Unpause(cctx, containerID)
			}); err != nil {
				return "", err
			}
			return containerID, nil
		case state.Running:
			return containerID, nil
		default:
			if err := c.call(ctx, func(cctx context.Context) error {
				return c.runtime.Start(cctx, containerID)
			}); err != nil {
				return "", err
			}
			return containerID, nil
		}
	}

	var id string
	if err := c.call(ctx, func(cctx context.Context) (ierr error) {
		id, ierr = c.runtime.Create(cctx, runtime.ContainerSpec{
			Name:     def.Name,
			Image:    def.Image,
			Port:     def.Port,
			Env:      def.Env,
			CPUs:     def.Resources.CPUs,
			MemoryMB: def.Resources.MemoryMB,
		})
		return ierr
	}); err != nil {
		return "", err
	}

	if err := c.call(ctx, func(cctx context.Context) error {
		return c.runtime.Start(cctx, id)
	}); err != nil {
		return "", err
	}
	return id, nil
}

// call bounds one runtime call with the per-call timeout.
func (c *ContainerController) call(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	return fn(cctx)
}

// persist writes a status snapshot to the optional store, best effort.
func (c *ContainerController) persist(ctx context.Context, st domain.ServiceStatus) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.SaveStatus(ctx, st); err != nil {
		c.logger.Warn("failed to persist status snapshot",
			logger.String("service", st.Name),
			logger.Error(err))
	}
}
