package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const (
	QuestionsKey      = "quiz:catalog:questions"
	AffiliateLinksKey = "quiz:catalog:affiliate_links"
)

// CatalogRepository caches both catalogs in Redis as JSON blobs and falls back
// to a loader on cache miss. Redis failures degrade to a direct load.
type CatalogRepository struct {
	client redis.UniversalClient
	loader app.CatalogLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client redis.UniversalClient, loader app.CatalogLoader, ttl time.Duration, log *zap.Logger) *CatalogRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Questions(ctx context.Context) ([]domain.Question, error) {
	return cachedLoad(ctx, r, QuestionsKey, r.loader.LoadQuestions)
}

func (r *CatalogRepository) AffiliateLinks(ctx context.Context) ([]domain.AffiliateLink, error) {
	return cachedLoad(ctx, r, AffiliateLinksKey, r.loader.LoadAffiliateLinks)
}

// Invalidate removes both cached catalogs.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, QuestionsKey, AffiliateLinksKey).Err()
}

func cachedLoad[T any](ctx context.Context, r *CatalogRepository, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if items, ok := readCache[T](ctx, r, key); ok {
		return items, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if items, ok := readCache[T](ctx, r, key); ok {
			return items, nil
		}

		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err(); err != nil {
			r.log.Warn("cache catalog", zap.String("key", key), zap.Error(err))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]T), nil
}

func readCache[T any](ctx context.Context, r *CatalogRepository, key string) ([]T, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("read catalog cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		r.log.Warn("decode catalog cache", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return items, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
