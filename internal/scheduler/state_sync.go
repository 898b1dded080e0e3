package scheduler

import (
	"context"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
	redisstore "github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/store/redis"
)

// StateSyncer restores status snapshots from Redis on startup so a
// restarted gateway re-adopts containers it already owns. Every adopted
// entry is verified against the container runtime; snapshots that no
// longer match reality fall back to STOPPED.
type StateSyncer struct {
	store    *redisstore.Store
	statuses *statestore.StatusStore
	registry *registry.ServiceRegistry
	runtime  runtime.ContainerRuntime
	logger   logger.Logger
}

// NewStateSyncer creates a syncer.
func NewStateSyncer(
	store *redisstore.Store,
	statuses *statestore.StatusStore,
	reg *registry.ServiceRegistry,
	rt runtime.ContainerRuntime,
	log logger.Logger,
) *StateSyncer {
	return &StateSyncer{
		store:    store,
		statuses: statuses,
		registry: reg,
		runtime:  rt,
		logger:   log,
	}
}

// Sync loads snapshots from Redis and seeds the StatusStore. Snapshots
// for services no longer in the registry are ignored.
func (ss *StateSyncer) Sync(ctx context.Context) error {
	ss.logger.Info("restoring status snapshots from redis")

	snapshots, err := ss.store.GetAllStatuses(ctx)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		ss.logger.Info("no status snapshots found in redis")
		return nil
	}

	adopted := 0
	for _, snap := range snapshots {
		if _, err := ss.registry.Get(snap.Name); err != nil {
			ss.logger.Debug("dropping snapshot for unknown service",
				logger.String("service", snap.Name))
			continue
		}
		if ss.adopt(ctx, snap) {
			adopted++
		}
	}

	ss.logger.Info("status snapshots restored",
		logger.Int("snapshots", len(snapshots)),
		logger.Int("adopted", adopted))
	return nil
}

// adopt seeds one service's status from a snapshot. Counters are always
// restored; the live state and container id only when the runtime
// confirms them.
func (ss *StateSyncer) adopt(ctx context.Context, snap *domain.ServiceStatus) bool {
	state := domain.StateStopped
	containerID := ""
	sleepStart := snap.SleepStart

	if snap.ContainerID != "" {
		cs, err := ss.runtime.Inspect(ctx, snap.ContainerID)
		switch {
		case err != nil:
			ss.logger.Warn("snapshot container missing, service starts stopped",
				logger.String("service", snap.Name),
				logger.Error(err))
		case cs.Paused:
			state = domain.StateSleeping
			containerID = snap.ContainerID
		case cs.Running:
			state = domain.StateRunning
			containerID = snap.ContainerID
			sleepStart = nil
		}
	}

	if state == domain.StateStopped {
		sleepStart = nil
	}

	ss.statuses.Update(snap.Name, func(s *domain.ServiceStatus) {
		s.State = state
		s.ContainerID = containerID
		s.WakeCount = snap.WakeCount
		s.TotalSleep = snap.TotalSleep
		s.LastWake = snap.LastWake
		s.SleepStart = sleepStart
		if !snap.LastAccessed.IsZero() {
			s.LastAccessed = snap.LastAccessed
		}
	})

	if state != domain.StateStopped {
		ss.logger.Info("adopted live container",
			logger.String("service", snap.Name),
			logger.String("container_id", containerID),
			logger.String("state", string(state)))
	}
	return state != domain.StateStopped
}
