// Package storage opens the persistence backends selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/database"
	"json4ai/internal/repository"
	"json4ai/internal/repository/memory"
)

// Stores is the full set of repositories a process works against. Pool is nil
// for the memory driver.
type Stores struct {
	Users         repository.UserStore
	Prompts       repository.PromptStore
	AdminSessions repository.AdminSessionStore
	Usage         repository.UsageStore
	Entitlements  repository.EntitlementStore
	Pool          *pgxpool.Pool
}

// Open connects storage.driver and usage.backend. The memory driver keeps
// state for the lifetime of the process only.
func Open(ctx context.Context, cfg *config.AppConfig, redisClient *redis.Client, log zerolog.Logger) (*Stores, error) {
	stores := &Stores{}

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("database migrations applied")
		}
		stores.Pool = pool
		stores.Users = repository.NewUserRepository(pool)
		stores.Prompts = repository.NewPromptRepository(pool)
		stores.AdminSessions = repository.NewAdminSessionRepository(pool)
		stores.Entitlements = repository.NewEntitlementRepository(pool)
	case "memory":
		log.Warn().Msg("memory storage driver in use, state is lost on restart")
		stores.Users = memory.NewUserStore()
		stores.Prompts = memory.NewPromptStore()
		stores.AdminSessions = memory.NewAdminSessionStore()
		stores.Entitlements = memory.NewEntitlementStore()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	switch cfg.Usage.Backend {
	case "postgres":
		if stores.Pool == nil {
			stores.Close()
			return nil, fmt.Errorf("usage backend postgres requires the postgres storage driver")
		}
		stores.Usage = repository.NewUsageRepository(stores.Pool)
	case "redis":
		if redisClient == nil {
			stores.Close()
			return nil, fmt.Errorf("usage backend redis requires a redis client")
		}
		stores.Usage = cache.NewUsageStore(redisClient)
	case "memory":
		stores.Usage = memory.NewUsageStore()
	default:
		stores.Close()
		return nil, fmt.Errorf("unsupported usage backend %q", cfg.Usage.Backend)
	}

	log.Info().
		Str("driver", cfg.Storage.Driver).
		Str("usage_backend", cfg.Usage.Backend).
		Msg("storage ready")
	return stores, nil
}

func (s *Stores) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
