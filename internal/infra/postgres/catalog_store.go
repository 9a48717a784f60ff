package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"marathon-service/internal/domain"
)

// CatalogStore reads and writes reading JSONB rows in Postgres. It is the
// durable side of the catalog; callers layer a TTL cache on top.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) LoadCatalog(ctx context.Context) ([]domain.Reading, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM readings ORDER BY data->>'date', id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		var reading domain.Reading
		if err := json.Unmarshal(raw, &reading); err != nil {
			return nil, fmt.Errorf("unmarshal reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return readings, nil
}

// SaveReading upserts one reading. Bulk import runs this row by row; the
// spreadsheet parsing itself happens outside this service.
func (s *CatalogStore) SaveReading(ctx context.Context, reading domain.Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO readings (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		reading.ID, data)
	if err != nil {
		return fmt.Errorf("save reading: %w", err)
	}
	return nil
}

// DeleteReading removes a reading. Ledger entries referencing it are kept;
// ranking and progress tolerate orphaned submissions.
func (s *CatalogStore) DeleteReading(ctx context.Context, readingID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM readings WHERE id = $1`, readingID)
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownReading
	}
	return nil
}
