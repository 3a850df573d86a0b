// Package store selects and opens the configured slot store.
package store

import (
	"context"
	"fmt"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/parking"
	"parking-occupancy/internal/store/httpstore"
	"parking-occupancy/internal/store/memory"
	"parking-occupancy/internal/store/postgres"
	"parking-occupancy/internal/store/redisstore"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverHTTP     = "http"
)

// Open connects to the store named by cfg.StoreDriver and seeds it with
// cfg.SlotCount free slots when it is empty. The returned close func releases
// the connection and is never nil.
func Open(ctx context.Context, cfg *config.Config) (parking.SlotStore, func(), error) {
	labels := parking.SlotLabels(cfg.SlotCount, cfg.SlotRowWidth)
	noop := func() {}

	switch cfg.StoreDriver {
	case DriverMemory, "":
		logging.Info(ctx).Int("slots", len(labels)).Msg("Using in-memory slot store")
		return memory.New(labels), noop, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		s := postgres.New(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		if err := s.Seed(ctx, labels); err != nil {
			pool.Close()
			return nil, noop, err
		}
		logging.Info(ctx).Msg("Using postgres slot store")
		return s, pool.Close, nil

	case DriverRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect redis: %w", err)
		}
		s := redisstore.New(client, redisstore.DefaultPrefix)
		if err := s.Seed(ctx, labels); err != nil {
			client.Close()
			return nil, noop, err
		}
		logging.Info(ctx).Msg("Using redis slot store")
		return s, func() { client.Close() }, nil

	case DriverHTTP:
		logging.Info(ctx).Str("url", cfg.StoreURL).Msg("Using remote slot collection")
		return httpstore.New(cfg.StoreURL, nil), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
