package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/memory"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// BuildMemoryStore selects the context backend named by MEMORY_BACKEND.
// The redis and postgres backends need their handle already connected.
func BuildMemoryStore(cfg *appconfig.Config, logger *logging.Logger, redisClient *redis.Client, pool *pgxpool.Pool) (*memory.Store, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var backend memory.Backend
	switch cfg.MemoryBackend {
	case "", "memory":
		backend = memory.NewLocalBackend()
	case "redis":
		if redisClient == nil {
			return nil, errors.New("bootstrap: memory backend redis requires a reachable REDIS_ADDR")
		}
		backend = memory.NewRedisBackend(redisClient, nil)
	case "postgres":
		if pool == nil {
			return nil, errors.New("bootstrap: memory backend postgres requires DATABASE_URL")
		}
		backend = memory.NewPostgresBackend(pool, nil)
	default:
		return nil, fmt.Errorf("bootstrap: unknown memory backend %q", cfg.MemoryBackend)
	}

	logger.Info("conversation memory configured", "backend", cfg.MemoryBackend, "ttl", cfg.MemoryTTL)
	return memory.NewStore(backend,
		memory.WithTTL(cfg.MemoryTTL),
		memory.WithLogger(logger),
	), nil
}
