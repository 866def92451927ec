package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// CatalogLoader reads both catalogs from Postgres; options are stored as JSONB.
type CatalogLoader struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewCatalogLoader(pool *pgxpool.Pool, log *zap.Logger) *CatalogLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogLoader{pool: pool, log: log}
}

func (l *CatalogLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT class_level, language_code, text, options, correct_answer, explanation
		FROM questions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrResourceUnavailable, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ClassLevel, &q.LanguageCode, &q.Text, &options, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", domain.ErrResourceUnavailable, err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			l.log.Warn("skipping question with unreadable options", zap.String("text", q.Text), zap.Error(err))
			continue
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrResourceUnavailable, err)
	}
	return app.ValidQuestions(questions, l.log), nil
}

func (l *CatalogLoader) LoadAffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error) {
	rows, err := l.pool.Query(ctx, `SELECT url, image, title, description FROM affiliate_links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: load affiliate links: %v", domain.ErrResourceUnavailable, err)
	}
	defer rows.Close()

	var links []domain.AffiliateLink
	for rows.Next() {
		var link domain.AffiliateLink
		if err := rows.Scan(&link.URL, &link.Image, &link.Title, &link.Description); err != nil {
			return nil, fmt.Errorf("%w: scan affiliate link: %v", domain.ErrResourceUnavailable, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load affiliate links: %v", domain.ErrResourceUnavailable, err)
	}
	return links, nil
}
