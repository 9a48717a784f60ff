package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"marathon-service/internal/domain"
)

// CatalogLoader fetches the reading catalog from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.Reading, error)
}

// CatalogRepository caches the catalog with TTL to avoid repeated DB hits.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Reading
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context) ([]domain.Reading, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.expiresAt.After(now) {
		readings := r.cached
		r.mu.RUnlock()
		return readings, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.expiresAt.After(now) {
			readings := r.cached
			r.mu.RUnlock()
			return readings, nil
		}
		r.mu.RUnlock()

		readings, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = readings
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return readings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Reading), nil
}

// Invalidate drops the cached catalog so the next read hits the loader.
// Called after admin writes to the backing store.
func (r *CatalogRepository) Invalidate(_ context.Context) error {
	r.mu.Lock()
	r.cached = nil
	r.expiresAt = time.Time{}
	r.mu.Unlock()
	return nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogStore is a loader backed by an in-memory map, writable so it
// can double as the catalog store in tests and demos.
type StaticCatalogStore struct {
	mu       sync.RWMutex
	readings map[string]domain.Reading
	order    []string
}

func NewStaticCatalogStore(readings []domain.Reading) *StaticCatalogStore {
	s := &StaticCatalogStore{readings: make(map[string]domain.Reading, len(readings))}
	for _, r := range readings {
		s.readings[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *StaticCatalogStore) LoadCatalog(_ context.Context) ([]domain.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	readings := make([]domain.Reading, 0, len(s.order))
	for _, id := range s.order {
		readings = append(readings, s.readings[id])
	}
	return readings, nil
}

func (s *StaticCatalogStore) SaveReading(_ context.Context, reading domain.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readings[reading.ID]; !ok {
		s.order = append(s.order, reading.ID)
	}
	s.readings[reading.ID] = reading
	return nil
}

// DeleteReading removes a reading from the catalog. Submissions referencing
// it are left alone; the ledger tolerates orphans.
func (s *StaticCatalogStore) DeleteReading(_ context.Context, readingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readings[readingID]; !ok {
		return domain.ErrUnknownReading
	}
	delete(s.readings, readingID)
	for i, id := range s.order {
		if id == readingID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
