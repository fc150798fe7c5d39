package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations are registered from files named <version>_<comment>.go.
var Migrations = migrate.NewMigrations()

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
