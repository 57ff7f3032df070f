package main

import (
	"context"
	"drift-spot-service/internal/adapters/repositories"
	"drift-spot-service/internal/config"
	"drift-spot-service/internal/platform/db"
	"drift-spot-service/internal/ports"
	"errors"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:           "spotctl",
	Short:         "Operate the drift spot store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// openPool connects to DATABASE_URL; commands that write need Postgres.
func openPool(ctx context.Context) (*pgxpool.Pool, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}
	if cfg.DatabaseURL == "" {
		return nil, cfg, errors.New("DATABASE_URL is required")
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, cfg, err
	}
	return pool, cfg, nil
}

// openRepository reads from Postgres when configured and from the seed file otherwise.
func openRepository(ctx context.Context) (ports.SpotRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if cfg.DatabaseURL == "" {
		spots, err := repositories.LoadSeedFile(cfg.SeedPath)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewMemorySpotRepository(spots...), func() {}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewPostgresSpotRepository(pool), pool.Close, nil
}
