package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/i18n"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	infraredis "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/static"
	"trivia-quiz-service/internal/telemetry"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServer(cmd.Context(), cfg, log, *port)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, log *zap.Logger, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewQuizMetrics(registry)

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		client, err := connectRedis(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		redisClient = client
	}

	var loader app.CatalogLoader = static.NewLoader(cfg.Catalog.Questions, cfg.Catalog.AffiliateLinks, log)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		loader = postgres.NewCatalogLoader(pool, log)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, time.Hour)

	var (
		catalog app.CatalogRepository
		store   app.SessionRepository
	)
	if redisClient != nil {
		catalog = infraredis.NewCatalogRepository(redisClient, loader, catalogTTL, log)
		store = infraredis.NewSessionStore(redisClient, sessionTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
		store = memory.NewSessionStore(sessionTTL)
	}

	locales, err := i18n.Load()
	if err != nil {
		return err
	}

	service := app.NewQuizService(store, catalog, locales,
		app.WithLogger(log),
		app.WithRecorder(metrics),
		app.WithPerClass(cfg.Quiz.PerClass),
		app.WithRecommendations(cfg.Quiz.Recommendations),
	)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service:   service,
			Logger:    log,
			Metrics:   metrics,
			Gatherer:  registry,
			Profiling: cfg.Env != "production",
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		warmCtx, cancel := context.WithTimeout(egCtx, 30*time.Second)
		defer cancel()
		if err := service.Warm(warmCtx); err != nil {
			log.Warn("catalog warmup failed; sessions will retry on demand", zap.Error(err))
		}
		return nil
	})
	eg.Go(func() error {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func connectRedis(ctx context.Context, cfg config.Config, log *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := telemetry.MonitorRedis(client, log); err != nil {
		_ = client.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
