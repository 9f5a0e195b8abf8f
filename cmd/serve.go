package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/client"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/config"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/engine"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/handlers"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/logging"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/notify"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/repository"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/scheduler"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/server"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/simulator"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/statssync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feed engine and its HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// capabilitySources bundles the consumed capabilities a backend mode
// provides.
type capabilitySources struct {
	records engine.RecordSource
	stats   statssync.StatsSource
	sim     engine.EventSimulator
	cleanup func()
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	sources, err := buildSources(cfg)
	if err != nil {
		return err
	}
	if sources.cleanup != nil {
		defer sources.cleanup()
	}

	var cache statssync.SnapshotCache = statssync.NewMemoryCache()
	if cfg.Redis.Enabled {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		cache = statssync.NewRedisCache(redis.NewClient(redisOpts), "", cfg.Redis.TTL)
		logger.Info("stats snapshot cache backed by redis")
	}

	var notifier notify.Notifier
	if cfg.NATS.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer pub.Close()
		notifier = pub
		logger.Info("view changes published to nats", "subject", cfg.NATS.Subject)
	}

	eng := engine.New(sources.records, sources.stats, engine.Options{
		PageSize:  cfg.Backend.PageSize,
		Simulator: sources.sim,
		Notifier:  notifier,
		Cache:     cache,
		Scheduler: scheduler.Config{
			MinInterval: cfg.Ingest.MinInterval,
			MaxInterval: cfg.Ingest.MaxInterval,
		},
	})
	defer eng.Close()

	// Prime the feed so the first page render has data.
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := eng.SetPage(startCtx, 1); err != nil {
		logger.Warn("initial page fetch failed", "error", err)
	}
	if err := eng.RefreshStats(startCtx); err != nil {
		logger.Warn("initial stats refresh failed", "error", err)
	}
	cancel()

	if cfg.Ingest.AutoStart {
		eng.StartIngestion()
	}

	handler := handlers.NewHandler(eng, logger)
	router := server.NewRouter(handler, cfg.Metrics.Enabled)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("feed API listening", "port", cfg.Server.Port, "mode", cfg.Backend.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func buildSources(cfg *config.Config) (*capabilitySources, error) {
	switch cfg.Backend.Mode {
	case config.ModeSim:
		sim := simulator.New(cfg.Ingest.SimBaseline, time.Now().UnixNano(), nil)
		s := &capabilitySources{records: sim, stats: sim}
		if cfg.Ingest.Simulate {
			s.sim = sim
		}
		return s, nil

	case config.ModeHTTP:
		backend := client.New(cfg.Backend.URL, cfg.Backend.Token)
		s := &capabilitySources{records: backend, stats: backend}
		if cfg.Ingest.Simulate {
			s.sim = backend
		}
		return s, nil

	case config.ModePostgres:
		connString := cfg.Database.Postgres.ConnString()

		log.Println("Running database migrations...")
		m, err := migrate.New("file://migrations", connString)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		repo, err := repository.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		s := &capabilitySources{records: repo, stats: repo, cleanup: repo.Close}
		if cfg.Ingest.Simulate {
			s.sim = &dbSimulator{
				gen:  simulator.New(0, time.Now().UnixNano(), nil),
				repo: repo,
			}
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

// dbSimulator synthesizes an event and persists it to the local logs
// table, so simulation works in postgres mode too.
type dbSimulator struct {
	gen  *simulator.Source
	repo *repository.PostgresRepository
}

func (s *dbSimulator) SimulateNewEvent(ctx context.Context) (*models.EventRecord, error) {
	rec, err := s.gen.SimulateNewEvent(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertRecord(ctx, rec); err != nil {
		return nil, models.NewFetchError("simulate new event", 0, err)
	}
	return rec, nil
}
