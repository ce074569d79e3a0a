package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// BuildDirectory returns the provider directory. With a database the SQL
// directory sits behind the LRU cache; without one, providers come from
// PROVIDER_SEED_FILE and live in memory.
func BuildDirectory(cfg *appconfig.Config, db *sql.DB, logger *logging.Logger) (providers.Directory, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if db != nil {
		logger.Info("provider directory configured", "source", "postgres",
			"cache_size", cfg.ProviderCacheSize, "cache_ttl", cfg.ProviderCacheTTL)
		return providers.NewCachedDirectory(providers.NewSQLDirectory(db), cfg.ProviderCacheSize, cfg.ProviderCacheTTL), nil
	}

	path := strings.TrimSpace(cfg.ProviderSeedFile)
	if path == "" {
		logger.Warn("no DATABASE_URL or PROVIDER_SEED_FILE; provider directory is empty")
		return providers.NewMemoryDirectory(), nil
	}
	seed, err := providers.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: provider seed: %w", err)
	}
	logger.Info("provider directory configured", "source", "seed", "path", path, "providers", len(seed))
	return providers.NewMemoryDirectory(seed...), nil
}
