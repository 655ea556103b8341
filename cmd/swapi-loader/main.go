// Command swapi-loader fetches people from the Star Wars API, resolves their
// references to labels and loads the flattened rows into PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/swapi-loader/pkg/cache"
	"github.com/Sternrassler/swapi-loader/pkg/client"
	"github.com/Sternrassler/swapi-loader/pkg/config"
	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/Sternrassler/swapi-loader/pkg/metrics"
	"github.com/Sternrassler/swapi-loader/pkg/pipeline"
	"github.com/Sternrassler/swapi-loader/pkg/storage"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
)

const (
	exitOK       = 0
	exitFatal    = 1
	exitDegraded = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its outcome to a process exit code.
func execute(ctx context.Context, args []string) int {
	code := exitOK
	cmd := newRootCmd(func(ctx context.Context, cfg *config.Config) error {
		stats, err := run(ctx, cfg)
		if err != nil {
			code = exitFatal
			return err
		}
		code = exitCode(stats, cfg.Pipeline.SkipThreshold)
		return nil
	})
	// nil would make cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		if code == exitOK {
			code = exitFatal
		}
	}
	return code
}

// newRootCmd builds the CLI. Flags override values from the environment.
func newRootCmd(runFn func(context.Context, *config.Config) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "swapi-loader",
		Short:         "Load enriched SWAPI people into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			return runFn(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int("start", 0, "first identifier of the range (inclusive)")
	flags.Int("end", 0, "end of the identifier range (exclusive)")
	flags.Int("chunk-size", 0, "identifiers per chunk")
	flags.String("base-url", "", "SWAPI base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("pretty", false, "human-readable console logs")

	return cmd
}

// applyFlags copies explicitly set flags over cfg and revalidates it.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("start") {
		cfg.Pipeline.RangeStart, _ = flags.GetInt("start")
	}
	if flags.Changed("end") {
		cfg.Pipeline.RangeEnd, _ = flags.GetInt("end")
	}
	if flags.Changed("chunk-size") {
		cfg.Pipeline.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("base-url") {
		cfg.API.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("pretty") {
		cfg.Logging.Pretty, _ = flags.GetBool("pretty")
	}

	return cfg.Validate()
}

// run wires the components and executes one load.
func run(ctx context.Context, cfg *config.Config) (*pipeline.Stats, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logCfg.File = cfg.Logging.File
	_, logCloser := logging.Setup(logCfg)
	defer logCloser.Close()

	logging.WithRunID(uuid.NewString())

	log.Info().
		Str("base_url", cfg.API.BaseURL).
		Int("range_start", cfg.Pipeline.RangeStart).
		Int("range_end", cfg.Pipeline.RangeEnd).
		Int("chunk_size", cfg.Pipeline.ChunkSize).
		Msg("Starting swapi-loader")

	if cfg.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	cacheManager, closeRedis := setupCache(ctx, cfg.Redis)
	defer closeRedis()

	store, err := storage.New(ctx, cfg.Postgres.DSN(), storage.DefaultConfig())
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to PostgreSQL")
		return nil, err
	}
	defer store.Close()

	if err := store.ResetSchema(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to prepare schema")
		return nil, err
	}

	clientCfg := client.DefaultConfig(cfg.API.UserAgent)
	clientCfg.Timeout = cfg.API.RequestTimeout
	clientCfg.MaxConcurrency = cfg.API.MaxConcurrentRequests
	clientCfg.Retry.MaxAttempts = cfg.API.MaxAttempts
	clientCfg.Cache = cacheManager

	httpClient, err := client.New(clientCfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create client")
		return nil, err
	}
	defer httpClient.Close()

	orchestrator, err := pipeline.New(
		swapi.NewEnricher(httpClient, cfg.API.BaseURL),
		store,
		pipeline.Config{
			RangeStart: cfg.Pipeline.RangeStart,
			RangeEnd:   cfg.Pipeline.RangeEnd,
			ChunkSize:  cfg.Pipeline.ChunkSize,
		},
	)
	if err != nil {
		return nil, err
	}

	stats, err := orchestrator.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return stats, err
	}

	fmt.Printf("Total time: %.2f seconds\n", stats.Elapsed().Seconds())

	summary := log.Info().Object("stats", stats)
	if rows, err := store.Rows(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to read back stored rows")
	} else {
		summary = summary.Int("stored_rows", len(rows))
	}
	summary.Msg("Load complete")

	return stats, nil
}

// setupCache connects to Redis when configured. An unreachable server
// disables caching rather than failing the run.
func setupCache(ctx context.Context, cfg config.RedisConfig) (*cache.Manager, func()) {
	if cfg.Addr == "" {
		return nil, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, caching disabled")
		redisClient.Close()
		return nil, func() {}
	}

	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.TTL).Msg("Response cache enabled")
	return cache.NewManager(redisClient, cfg.TTL), func() { redisClient.Close() }
}

type outcome interface {
	FailedBatches() int64
	SkipRate() float64
}

// exitCode reports a degraded run when too many records were skipped or any
// batch failed to persist.
func exitCode(stats outcome, skipThreshold float64) int {
	if stats == nil {
		return exitFatal
	}
	if stats.FailedBatches() > 0 || stats.SkipRate() > skipThreshold {
		return exitDegraded
	}
	return exitOK
}
