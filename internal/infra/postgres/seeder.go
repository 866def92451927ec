package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-quiz-service/internal/domain"
	pgmigrations "trivia-quiz-service/internal/infra/postgres/migrations"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64    `bun:"id,pk,autoincrement"`
	ClassLevel    int      `bun:"class_level,notnull"`
	LanguageCode  string   `bun:"language_code,notnull"`
	Text          string   `bun:"text,notnull"`
	Options       []string `bun:"options,type:jsonb,notnull"`
	CorrectAnswer string   `bun:"correct_answer,notnull"`
	Explanation   string   `bun:"explanation,notnull"`
}

type affiliateLinkRow struct {
	bun.BaseModel `bun:"table:affiliate_links"`

	ID          int64  `bun:"id,pk,autoincrement"`
	URL         string `bun:"url,notnull"`
	Image       string `bun:"image,notnull"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`
}

// OpenDB opens a bun handle over pgdriver for dsn.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending catalog migration.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// Seeder replaces the stored catalogs with new content.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed swaps both catalogs in one transaction. Callers validate questions first.
func (s *Seeder) Seed(ctx context.Context, questions []domain.Question, links []domain.AffiliateLink) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*questionRow)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("truncate questions: %w", err)
		}
		if _, err := tx.NewTruncateTable().Model((*affiliateLinkRow)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("truncate affiliate links: %w", err)
		}

		if len(questions) > 0 {
			rows := make([]questionRow, 0, len(questions))
			for _, q := range questions {
				rows = append(rows, questionRow{
					ClassLevel:    q.ClassLevel,
					LanguageCode:  q.LanguageCode,
					Text:          q.Text,
					Options:       q.Options,
					CorrectAnswer: q.CorrectAnswer,
					Explanation:   q.Explanation,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}

		if len(links) > 0 {
			rows := make([]affiliateLinkRow, 0, len(links))
			for _, l := range links {
				rows = append(rows, affiliateLinkRow{
					URL:         l.URL,
					Image:       l.Image,
					Title:       l.Title,
					Description: l.Description,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert affiliate links: %w", err)
			}
		}
		return nil
	})
}
