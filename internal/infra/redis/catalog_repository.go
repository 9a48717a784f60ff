package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"marathon-service/internal/domain"
)

const catalogKey = "marathon:catalog"

// CatalogLoader fetches the reading catalog from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.Reading, error)
}

// CatalogRepository caches the whole catalog as one JSON value in Redis and
// falls back to a loader on cache miss. The catalog is small (one reading per
// day) so a single key keeps invalidation trivial.
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context) ([]domain.Reading, error) {
	if readings, ok := r.fromCache(ctx); ok {
		return readings, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if readings, ok := r.fromCache(ctx); ok {
			return readings, nil
		}

		readings, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(readings); err == nil {
			_ = r.client.Set(ctx, catalogKey, data, r.ttlWithJitter()).Err()
		}
		return readings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Reading), nil
}

// Invalidate drops the cached catalog after admin writes to the backing store.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	return nil
}

func (r *CatalogRepository) fromCache(ctx context.Context) ([]domain.Reading, bool) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var readings []domain.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, false
	}
	return readings, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
