package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

func TestCatalogRepositoryCaches(t *testing.T) {
	loader := &countingLoader{StaticCatalogLoader: NewStaticCatalogLoader(sampleQuestions(), sampleLinks())}
	repo := NewCatalogRepository(loader, time.Minute)

	for i := 0; i < 3; i++ {
		qs, err := repo.Questions(context.Background())
		if err != nil {
			t.Fatalf("questions: %v", err)
		}
		if len(qs) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(qs))
		}
		if _, err := repo.AffiliateLinks(context.Background()); err != nil {
			t.Fatalf("links: %v", err)
		}
	}
	if loader.questionCalls.Load() != 1 || loader.linkCalls.Load() != 1 {
		t.Fatalf("expected one load each, got questions=%d links=%d",
			loader.questionCalls.Load(), loader.linkCalls.Load())
	}
}

func TestCatalogRepositoryExpires(t *testing.T) {
	loader := &countingLoader{StaticCatalogLoader: NewStaticCatalogLoader(sampleQuestions(), nil)}
	repo := NewCatalogRepository(loader, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	repo.clock = func() time.Time { return now }

	_, _ = repo.Questions(context.Background())
	now = now.Add(50 * time.Second)
	_, _ = repo.Questions(context.Background())
	if loader.questionCalls.Load() != 1 {
		t.Fatalf("expected cache hit inside ttl, got %d loads", loader.questionCalls.Load())
	}

	// past ttl plus the maximum 10% jitter
	now = now.Add(time.Minute)
	_, _ = repo.Questions(context.Background())
	if loader.questionCalls.Load() != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", loader.questionCalls.Load())
	}

	repo.Invalidate()
	_, _ = repo.Questions(context.Background())
	if loader.questionCalls.Load() != 3 {
		t.Fatalf("expected reload after invalidate, got %d loads", loader.questionCalls.Load())
	}
}

func TestCatalogRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{
		StaticCatalogLoader: NewStaticCatalogLoader(sampleQuestions(), nil),
		gate:                release,
	}
	repo := NewCatalogRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Questions(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loader.questionCalls.Load(); got != 1 {
		t.Fatalf("expected singleflight to collapse loads, got %d", got)
	}
}

func TestCatalogRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &failingLoader{}
	repo := NewCatalogRepository(loader, time.Minute)

	if _, err := repo.Questions(context.Background()); !errors.Is(err, domain.ErrResourceUnavailable) {
		t.Fatalf("expected resource unavailable, got %v", err)
	}
	if _, err := repo.Questions(context.Background()); err == nil {
		t.Fatalf("expected second error")
	}
	if loader.calls != 2 {
		t.Fatalf("errors must not be cached, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	*StaticCatalogLoader
	gate          chan struct{}
	questionCalls atomic.Int32
	linkCalls     atomic.Int32
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.questionCalls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.StaticCatalogLoader.LoadQuestions(ctx)
}

func (l *countingLoader) LoadAffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error) {
	l.linkCalls.Add(1)
	return l.StaticCatalogLoader.LoadAffiliateLinks(ctx)
}

type failingLoader struct {
	calls int
}

func (l *failingLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	l.calls++
	return nil, domain.ErrResourceUnavailable
}

func (l *failingLoader) LoadAffiliateLinks(context.Context) ([]domain.AffiliateLink, error) {
	return nil, domain.ErrResourceUnavailable
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ClassLevel:    1,
			LanguageCode:  "en",
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4"},
			CorrectAnswer: "4",
			Explanation:   "Two and two make four.",
		},
		{
			ClassLevel:    2,
			LanguageCode:  "en",
			Text:          "What is 3 * 3?",
			Options:       []string{"6", "9"},
			CorrectAnswer: "9",
		},
	}
}

func sampleLinks() []domain.AffiliateLink {
	return []domain.AffiliateLink{{URL: "https://example.com/book", Title: "Book"}}
}
