package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/postgres"
	infraredis "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/static"
)

// NewSeedCmd imports the static JSON catalogs into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Import the question and affiliate catalogs into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runSeed(cmd.Context(), cfg, log)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	loader := static.NewLoader(cfg.Catalog.Questions, cfg.Catalog.AffiliateLinks, log)
	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		return fmt.Errorf("read questions: %w", err)
	}
	links, err := loader.LoadAffiliateLinks(ctx)
	if err != nil {
		return fmt.Errorf("read affiliate links: %w", err)
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()
	if err := postgres.NewSeeder(db).Seed(ctx, questions, links); err != nil {
		return err
	}
	log.Info("catalog seeded", zap.Int("questions", len(questions)), zap.Int("affiliate_links", len(links)))

	if cfg.Redis.Addr == "" {
		return nil
	}
	client, err := connectRedis(ctx, cfg, log)
	if err != nil {
		log.Warn("skip cache invalidation", zap.Error(err))
		return nil
	}
	defer client.Close()
	cache := infraredis.NewCatalogRepository(client, nil, 0, log)
	if err := cache.Invalidate(ctx); err != nil {
		log.Warn("invalidate catalog cache", zap.Error(err))
	}
	return nil
}
