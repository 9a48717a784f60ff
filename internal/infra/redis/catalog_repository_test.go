package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"marathon-service/internal/domain"
	"marathon-service/internal/infra/memory"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogStore(sampleReadings()),
	}
	repo := NewCatalogRepository(client, loader, time.Minute)

	readings, err := repo.Catalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(readings) != 2 || readings[0].ID != "r1" {
		t.Fatalf("unexpected catalog: %+v", readings)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("marathon:catalog") {
		t.Fatalf("expected catalog cached under the redis key")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.Catalog(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestCatalogRepositoryInvalidateClearsKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogStore(sampleReadings()),
	}
	repo := NewCatalogRepository(client, loader, time.Minute)

	if _, err := repo.Catalog(context.Background()); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := repo.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("marathon:catalog") {
		t.Fatalf("expected cached catalog to be dropped")
	}
	if _, err := repo.Catalog(context.Background()); err != nil {
		t.Fatalf("catalog after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) ([]domain.Reading, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

func sampleReadings() []domain.Reading {
	return []domain.Reading{
		{
			ID:       "r1",
			Date:     "2024-01-10",
			Title:    "Genesis 1-3",
			Question: "What was created on the first day?",
			Options: []domain.QuizOption{
				{ID: "a", Text: "Light"},
				{ID: "b", Text: "Animals"},
			},
			CorrectOptionID: "a",
			BonusPoints:     2,
		},
		{ID: "r2", Date: "2024-01-11", Title: "Genesis 4-6"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
