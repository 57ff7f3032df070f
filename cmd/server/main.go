package main

import (
	"context"
	"drift-spot-service/internal/adapters/cache"
	"drift-spot-service/internal/adapters/events"
	"drift-spot-service/internal/adapters/repositories"
	"drift-spot-service/internal/adapters/routing"
	"drift-spot-service/internal/api"
	"drift-spot-service/internal/config"
	"drift-spot-service/internal/platform/db"
	"drift-spot-service/internal/ports"
	"drift-spot-service/internal/services"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres or memory, OSRM, Redis) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeRepo()

	rdb := db.OpenRedis(cfg.RedisAddr, cfg.RedisPassword)
	if rdb != nil {
		defer rdb.Close()
	}

	resolver, err := newResolver(cfg, rdb)
	if err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub(rdb)
	defer hub.Close()

	sessions, err := services.NewSessionRegistry(
		resolver,
		services.NewNameUniquenessGuard(repo),
		services.NewPublishCoordinator(repo, hub),
	)
	if err != nil {
		log.Fatal(err)
	}
	go sessions.RunEviction(ctx, time.Minute, cfg.SessionIdleTTL)

	router := api.NewRouter(api.Deps{
		Repo:               repo,
		Resolver:           resolver,
		Sessions:           sessions,
		Hub:                hub,
		PreviewConcurrency: cfg.PreviewConcurrency,
	})

	// WriteTimeout covers a finish that waits on slow road-snapping; the
	// event stream clears its own deadline.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s routing=%s", cfg.Port, cfg.RoutingMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// openRepository uses Postgres when DATABASE_URL is set and otherwise an
// in-memory store seeded from SEED_PATH (or the built-in mock spots).
func openRepository(ctx context.Context, cfg config.Config) (ports.SpotRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		return memoryRepository(cfg.SeedPath), func() {}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, err
	}

	if err := repositories.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	log.Printf("Using postgres spot repository max_conns=%d", cfg.DBMaxConns)
	return repositories.NewPostgresSpotRepository(pool), pool.Close, nil
}

func memoryRepository(seedPath string) *repositories.MemorySpotRepository {
	if seedPath != "" {
		spots, err := repositories.LoadSeedFile(seedPath)
		if err == nil {
			log.Printf("Using in-memory spot repository seed=%s spots=%d", seedPath, len(spots))
			return repositories.NewMemorySpotRepository(spots...)
		}
		log.Printf("seed file unusable, falling back to mock spots: %v", err)
	}

	log.Println("Using in-memory spot repository with mock spots")
	return repositories.NewMemorySpotRepository(repositories.MockSpots()...)
}

func newResolver(cfg config.Config, rdb *redis.Client) (ports.PathResolver, error) {
	if cfg.RoutingMode == config.RoutingModeLocal {
		return routing.LocalPathResolver{}, nil
	}

	opts := []routing.Option{
		routing.WithProfile(cfg.OSRMProfile),
		routing.WithTimeout(cfg.RoutingTimeout),
		routing.WithMaxAttempts(cfg.RoutingMaxAttempts),
	}
	// Snapped segments are cached only when Redis is configured.
	if rdb != nil {
		opts = append(opts, routing.WithSegmentCache(cache.NewRedisSegmentCache(rdb, cfg.SegmentCacheTTL)))
	}

	resolver, err := routing.NewOSRMPathResolver(cfg.OSRMBaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("new resolver: %w", err)
	}
	return resolver, nil
}
