package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
)

// DefaultStatusTTL bounds how long a snapshot survives without refresh.
// A gateway that has been down longer than this re-learns its fleet from
// scratch instead of adopting stale container IDs.
const DefaultStatusTTL = 48 * time.Hour

// Store persists ServiceStatus snapshots so a restarted gateway can
// re-adopt the containers it already owns instead of orphaning them.
// All writes are best effort; the in-memory StatusStore stays
// authoritative.
type Store struct {
	client *redis.Client
}

// NewStore creates a new snapshot store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SaveStatus stores one service's status snapshot.
func (s *Store) SaveStatus(ctx context.Context, status domain.ServiceStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	key := StatusKey(status.Name)

	if err := s.client.Set(ctx, key, data, DefaultStatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}

	if err := s.client.SAdd(ctx, AllServicesKey(), status.Name).Err(); err != nil {
		return fmt.Errorf("failed to add service to set: %w", err)
	}

	return nil
}

// GetStatus retrieves one service's status snapshot by name.
func (s *Store) GetStatus(ctx context.Context, name string) (*domain.ServiceStatus, error) {
	data, err := s.client.Get(ctx, StatusKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no snapshot for service: %s", name)
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var status domain.ServiceStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// GetAllStatuses retrieves every stored snapshot. Entries that cannot be
// fetched or parsed are skipped.
func (s *Store) GetAllStatuses(ctx context.Context) ([]*domain.ServiceStatus, error) {
	names, err := s.client.SMembers(ctx, AllServicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshotted names: %w", err)
	}

	statuses := make([]*domain.ServiceStatus, 0, len(names))
	for _, name := range names {
		status, err := s.GetStatus(ctx, name)
		if err != nil {
			continue
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// DeleteStatus removes one service's snapshot.
func (s *Store) DeleteStatus(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, StatusKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	if err := s.client.SRem(ctx, AllServicesKey(), name).Err(); err != nil {
		return fmt.Errorf("failed to remove service from set: %w", err)
	}
	return nil
}

// SaveStatusesMany stores multiple snapshots in one pipeline.
func (s *Store) SaveStatusesMany(ctx context.Context, statuses []domain.ServiceStatus) error {
	pipe := s.client.Pipeline()

	for _, status := range statuses {
		data, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("failed to marshal status %s: %w", status.Name, err)
		}
		pipe.Set(ctx, StatusKey(status.Name), data, DefaultStatusTTL)
		pipe.SAdd(ctx, AllServicesKey(), status.Name)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save statuses: %w", err)
	}
	return nil
}
