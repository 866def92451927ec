package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const (
	questionsKey = "questions"
	linksKey     = "affiliate_links"
)

// CatalogRepository caches both catalogs with TTL to avoid repeated loads.
type CatalogRepository struct {
	loader app.CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	questions cached[[]domain.Question]
	links     cached[[]domain.AffiliateLink]
}

type cached[T any] struct {
	value     T
	expiresAt time.Time
	loaded    bool
}

func (c cached[T]) fresh(now time.Time) bool {
	return c.loaded && c.expiresAt.After(now)
}

func NewCatalogRepository(loader app.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Questions(ctx context.Context) ([]domain.Question, error) {
	return load(r, questionsKey, &r.questions, func() ([]domain.Question, error) {
		return r.loader.LoadQuestions(ctx)
	})
}

func (r *CatalogRepository) AffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error) {
	return load(r, linksKey, &r.links, func() ([]domain.AffiliateLink, error) {
		return r.loader.LoadAffiliateLinks(ctx)
	})
}

// Invalidate drops both cached catalogs.
func (r *CatalogRepository) Invalidate() {
	r.mu.Lock()
	r.questions = cached[[]domain.Question]{}
	r.links = cached[[]domain.AffiliateLink]{}
	r.mu.Unlock()
}

func load[T any](r *CatalogRepository, key string, entry *cached[T], fetch func() (T, error)) (T, error) {
	r.mu.RLock()
	if e := *entry; e.fresh(r.clock()) {
		r.mu.RUnlock()
		return e.value, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if e := *entry; e.fresh(now) {
			r.mu.RUnlock()
			return e.value, nil
		}
		r.mu.RUnlock()

		value, err := fetch()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		*entry = cached[T]{value: value, expiresAt: now.Add(r.ttlWithJitter()), loaded: true}
		r.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader serves fixed catalogs (useful for tests/demos).
type StaticCatalogLoader struct {
	questions []domain.Question
	links     []domain.AffiliateLink
}

func NewStaticCatalogLoader(questions []domain.Question, links []domain.AffiliateLink) *StaticCatalogLoader {
	return &StaticCatalogLoader{questions: questions, links: links}
}

func (l *StaticCatalogLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

func (l *StaticCatalogLoader) LoadAffiliateLinks(context.Context) ([]domain.AffiliateLink, error) {
	return l.links, nil
}
