// Package static loads the question and affiliate catalogs from JSON
// resources, either files on disk or http(s) URLs.
package static

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const maxResourceBytes = 16 << 20

// Loader implements app.CatalogLoader over two JSON resources.
type Loader struct {
	questions string
	links     string
	client    *http.Client
	log       *zap.Logger
}

func NewLoader(questions, links string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		questions: questions,
		links:     links,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}
}

// LoadQuestions returns every valid question; malformed records are skipped.
func (l *Loader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	var raw []domain.Question
	if err := l.decode(ctx, l.questions, &raw); err != nil {
		return nil, err
	}
	return app.ValidQuestions(raw, l.log), nil
}

func (l *Loader) LoadAffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error) {
	var links []domain.AffiliateLink
	if err := l.decode(ctx, l.links, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (l *Loader) decode(ctx context.Context, source string, v any) error {
	rc, err := l.open(ctx, source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrResourceUnavailable, source, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(io.LimitReader(rc, maxResourceBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrResourceUnavailable, source, err)
	}
	return nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, fmt.Errorf("no source configured")
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}
