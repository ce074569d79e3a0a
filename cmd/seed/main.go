package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-booking-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// upserter is the slice of the SQL directory the seeder writes through.
type upserter interface {
	Upsert(ctx context.Context, p providers.Provider) (int64, error)
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	defaultFile := cfg.ProviderSeedFile
	if defaultFile == "" {
		defaultFile = "config/providers.yaml"
	}
	file := flag.String("file", defaultFile, "provider seed YAML")
	flag.Parse()

	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := bootstrap.OpenSQLDB(ctx, cfg)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	if db == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	seed, err := providers.LoadSeedFile(*file)
	if err != nil {
		logger.Error("load seed", "file", *file, "error", err)
		os.Exit(1)
	}
	n, err := seedProviders(ctx, providers.NewSQLDirectory(db), seed, logger)
	if err != nil {
		logger.Error("seed providers", "error", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d providers from %s\n", n, *file)
}

func seedProviders(ctx context.Context, dst upserter, seed []providers.Provider, logger *logging.Logger) (int, error) {
	for i, p := range seed {
		id, err := dst.Upsert(ctx, p)
		if err != nil {
			return i, err
		}
		logger.Info("provider upserted", "provider_id", id, "name", p.Name)
	}
	return len(seed), nil
}
