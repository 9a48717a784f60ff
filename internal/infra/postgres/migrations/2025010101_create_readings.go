package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createReadingsSQL = `
CREATE TABLE IF NOT EXISTS readings (
    id   TEXT PRIMARY KEY,
    data JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS readings_date_idx ON readings ((data->>'date'));
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createReadingsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS readings`)
			return err
		},
	)
}
