package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/controller"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
)

const (
	// DefaultScanInterval is how often the fleet is scanned for idle services
	DefaultScanInterval = 30 * time.Second
	// DefaultWorkers bounds concurrent sleep operations so a scan never
	// floods the container runtime
	DefaultWorkers = 4
)

// AutoSleepScheduler periodically scans the fleet and dispatches sleep
// operations for idle RUNNING services. Dispatch goes through a bounded
// worker pool; the scan itself never blocks on a runtime call, so a slow
// pause cannot delay the next tick.
type AutoSleepScheduler struct {
	registry   *registry.ServiceRegistry
	store      *statestore.StatusStore
	controller *controller.ContainerController
	logger     logger.Logger
	interval   time.Duration
	workers    int

	jobs     chan string
	stopCh   chan struct{}
	tickWG   sync.WaitGroup
	workerWG sync.WaitGroup
}

// NewAutoSleepScheduler creates a scheduler. Zero interval or workers
// select the defaults.
func NewAutoSleepScheduler(
	reg *registry.ServiceRegistry,
	store *statestore.StatusStore,
	ctrl *controller.ContainerController,
	log logger.Logger,
	interval time.Duration,
	workers int,
) *AutoSleepScheduler {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &AutoSleepScheduler{
		registry:   reg,
		store:      store,
		controller: ctrl,
		logger:     log,
		interval:   interval,
		workers:    workers,
		jobs:       make(chan string, workers*2),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the worker pool and the periodic scan.
func (s *AutoSleepScheduler) Start(ctx context.Context) error {
	for i := 0; i < s.workers; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}

	// Scan immediately on start: adopted services may already be idle.
	s.Scan()

	ticker := time.NewTicker(s.interval)
	s.tickWG.Add(1)
	go func() {
		defer ticker.Stop()
		defer s.tickWG.Done()
		for {
			select {
			case <-ticker.C:
				s.Scan()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Scan finds sleep-eligible services and enqueues them for the worker
// pool, low-priority tiers first, registration order within a tier. When
// the queue is full the remainder is skipped; the next tick retries.
func (s *AutoSleepScheduler) Scan() {
	candidates := s.eligible(time.Now())
	if len(candidates) == 0 {
		s.logger.Debug("auto-sleep scan found no idle services")
		return
	}

	s.logger.Info("auto-sleep scan",
		logger.Int("candidates", len(candidates)))

	for _, name := range candidates {
		select {
		case s.jobs <- name:
		default:
			s.logger.Debug("sleep queue full, deferring to next scan",
				logger.String("service", name))
			return
		}
	}
}

// eligible returns the names of services that may be slept now.
func (s *AutoSleepScheduler) eligible(now time.Time) []string {
	type candidate struct {
		name string
		rank int
	}
	var out []candidate

	for _, def := range s.registry.List() {
		if !def.SleepPolicy.Enabled {
			continue
		}
		st, ok := s.store.Snapshot(def.Name)
		if !ok {
			continue
		}
		if st.State != domain.StateRunning || st.ActiveRequests > 0 {
			continue
		}
		if now.Sub(st.LastAccessed) < def.SleepPolicy.IdleTimeout {
			continue
		}
		if now.Sub(st.LastWake) < def.SleepPolicy.MinSleepTime {
			continue
		}
		out = append(out, candidate{name: def.Name, rank: def.SleepPolicy.Priority.Rank()})
	}

	// Low-priority services are reclaimed first; registration order
	// breaks ties within a tier.
	sort.SliceStable(out, func(i, j int) bool { return out[i].rank < out[j].rank })

	names := make([]string, len(out))
	for i, c := range out {
		names[i] = c.name
	}
	return names
}

func (s *AutoSleepScheduler) worker() {
	defer s.workerWG.Done()
	for name := range s.jobs {
		// Detached context: an in-flight sleep drains during shutdown
		// instead of being cut off; the controller's per-call timeout
		// still bounds it.
		if _, err := s.controller.Sleep(context.Background(), name); err != nil {
			s.logger.Warn("auto-sleep failed",
				logger.String("service", name),
				logger.Error(err))
		}
	}
}

// Shutdown stops scheduling new sleeps, drains in-flight sleep jobs, then
// wakes every SLEEPING service. Paused containers are never abandoned
// across a gateway restart.
func (s *AutoSleepScheduler) Shutdown(ctx context.Context) {
	close(s.stopCh)
	s.tickWG.Wait()
	close(s.jobs)
	s.workerWG.Wait()

	s.wakeAllSleeping(ctx)
}

func (s *AutoSleepScheduler) wakeAllSleeping(ctx context.Context) {
	var names []string
	for _, st := range s.store.List() {
		if st.State == domain.StateSleeping {
			names = append(names, st.Name)
		}
	}
	if len(names) == 0 {
		return
	}

	s.logger.Info("waking sleeping services before exit",
		logger.Int("count", len(names)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := s.controller.Wake(gctx, name); err != nil {
				s.logger.Error("failed to wake service during shutdown",
					logger.String("service", name),
					logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
